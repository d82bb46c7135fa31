package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kestrel/internal/cache"
	"kestrel/internal/config"
	"kestrel/internal/database"
	"kestrel/internal/handlers"
	"kestrel/internal/logger"
	"kestrel/internal/messaging"
	"kestrel/internal/metrics"
	"kestrel/internal/middleware"
	"kestrel/internal/repository"
	"kestrel/internal/search"
	"kestrel/internal/service"
)

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	cache    *cache.Client
	services *service.Services
}

// NewServer создает новый экземпляр сервера. База обязательна; NATS, Redis и
// Elasticsearch опциональны - без них сервер работает в деградированном
// режиме, что логируется при старте.
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)
	log := logger.Get()

	// Подключаемся к базе данных
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}

	// Запускаем миграции
	if err := db.RunMigrations(); err != nil {
		logger.Fatal("failed to run migrations", "error", err)
	}

	// Подключаемся к NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Warn("NATS unavailable, events disabled", "error", err)
		natsClient = nil
	}

	// Подключаемся к Redis
	cacheClient, err := cache.New(cfg.Cache)
	if err != nil {
		log.Warn("redis unavailable, slot listings uncached", "error", err)
		cacheClient = nil
	}

	// Подключаемся к Elasticsearch
	searchClient, err := search.NewClient(cfg.Elasticsearch)
	if err != nil {
		log.Warn("elasticsearch unavailable, catalogue search falls back to database", "error", err)
		searchClient = nil
	}

	m := metrics.New("kestrel")
	repos := repository.NewRepositories(db)
	services := service.NewServices(service.Deps{
		Repos:   repos,
		NATS:    natsClient,
		Cache:   cacheClient,
		Search:  searchClient,
		Metrics: m,
		Booking: cfg.Booking,
	})

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(m))

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		cache:    cacheClient,
		services: services,
	}
	server.setupRoutes()
	return server
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	h := handlers.New(s.services, s.cache)

	api := s.router.Group("/api")
	{
		experiences := api.Group("/experiences")
		{
			experiences.POST("", h.CreateExperience)
			experiences.GET("", h.ListExperiences)
			experiences.GET("/:id", h.GetExperience)
			experiences.PUT("/:id/schedule", h.UpdateSchedule)
			experiences.POST("/:id/slots/materialize", h.Materialize)
			experiences.GET("/:id/slots", h.ListSlots)
		}

		slots := api.Group("/slots")
		{
			slots.PATCH("/move", h.MoveSlot)
			slots.PATCH("/capacity", h.UpdateSlotCapacity)
		}

		api.POST("/capacity/check", h.CheckCapacity)
		api.POST("/quotes", h.Quote)

		reservations := api.Group("/reservations")
		{
			reservations.POST("", h.CreateReservation)
			reservations.GET("", h.ListReservations)
			reservations.GET("/:id", h.GetReservation)
			reservations.PATCH("/approve", h.ApproveReservation)
			reservations.PATCH("/decline", h.DeclineReservation)
			reservations.PATCH("/cancel", h.CancelReservation)
			reservations.PATCH("/pay", h.PayReservation)
			reservations.PATCH("/checkin", h.CheckInReservation)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "kestrel-api",
		"version": "1.0.0",
	})
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Services возвращает сервисы для фоновых джоб
func (s *Server) Services() *service.Services {
	return s.services
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("error closing NATS connection", "error", err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			logger.Get().Error("error closing redis connection", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("error closing database connection", "error", err)
			return err
		}
	}
	return nil
}
