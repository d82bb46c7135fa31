// Package handlers содержит HTTP-обработчики API. Обработчики тонкие:
// парсинг запроса, вызов сервиса, маппинг ошибки в статус-код.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kestrel/internal/cache"
	apperrors "kestrel/internal/errors"
	"kestrel/internal/models"
	"kestrel/internal/service"
)

// Handlers содержит зависимости HTTP-обработчиков
type Handlers struct {
	services *service.Services
	cache    *cache.Client
}

// New создаёт обработчики
func New(services *service.Services, cacheClient *cache.Client) *Handlers {
	return &Handlers{services: services, cache: cacheClient}
}

// CreateExperience обрабатывает POST /api/experiences
func (h *Handlers) CreateExperience(c *gin.Context) {
	var req models.CreateExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	exp, err := h.services.Experiences.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.CreateExperienceResponse{ID: exp.ID})
}

// ListExperiences обрабатывает GET /api/experiences?query=&page=&pageSize=
func (h *Handlers) ListExperiences(c *gin.Context) {
	query := c.Query("query")
	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "pageSize", 20)

	resp, err := h.services.Experiences.List(c.Request.Context(), query, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetExperience обрабатывает GET /api/experiences/:id
func (h *Handlers) GetExperience(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	exp, err := h.services.Experiences.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

// UpdateSchedule обрабатывает PUT /api/experiences/:id/schedule
func (h *Handlers) UpdateSchedule(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req models.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	exp, err := h.services.Experiences.UpdateSchedule(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

// Quote обрабатывает POST /api/quotes
func (h *Handlers) Quote(c *gin.Context) {
	var req models.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	breakdown, err := h.services.Experiences.Quote(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// respondError переводит ошибки сервисов в HTTP-статусы:
// конфигурация - 422, вместимость и недопустимый переход - 409,
// исчерпанные повторы гонки - 503.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsConfiguration(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case apperrors.IsCapacity(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsState(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrRaceDetected):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "race detected, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
