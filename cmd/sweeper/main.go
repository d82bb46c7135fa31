package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"kestrel/cmd/sweeper/jobs"
	"kestrel/internal/cache"
	"kestrel/internal/config"
	"kestrel/internal/database"
	"kestrel/internal/logger"
	"kestrel/internal/messaging"
	"kestrel/internal/repository"
	"kestrel/internal/service"
)

// Sweeper - отдельный процесс, отменяющий истёкшие pending-холды. Работает
// рядом с API и использует те же блокировки слотов, поэтому их можно
// запускать в любом количестве без двойной отмены.
func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Warn("NATS unavailable, expiry events disabled", "error", err)
		natsClient = nil
	}

	cacheClient, err := cache.New(cfg.Cache)
	if err != nil {
		log.Warn("redis unavailable, slot cache will not be invalidated", "error", err)
		cacheClient = nil
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(service.Deps{
		Repos:   repos,
		NATS:    natsClient,
		Cache:   cacheClient,
		Booking: cfg.Booking,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := jobs.NewHoldExpiryJob(services.Reservations, cfg.Booking.SweepInterval)
	job.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down sweeper")
	job.Stop()

	if natsClient != nil {
		_ = natsClient.Close()
	}
	if cacheClient != nil {
		_ = cacheClient.Close()
	}
}
