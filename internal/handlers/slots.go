package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kestrel/internal/logger"
	"kestrel/internal/models"
)

// Materialize обрабатывает POST /api/experiences/:id/slots/materialize
func (h *Handlers) Materialize(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req models.MaterializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	resp, err := h.services.Slots.Materialize(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListSlots обрабатывает GET /api/experiences/:id/slots?from=&to=
// Ответ кэшируется как сырой JSON; инвалидация - при любой операции,
// меняющей слоты или их занятость.
func (h *Handlers) ListSlots(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	fromStr := c.DefaultQuery("from", time.Now().UTC().Format("2006-01-02"))
	toStr := c.DefaultQuery("to", time.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02"))

	from, err := time.ParseInLocation("2006-01-02", fromStr, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := time.ParseInLocation("2006-01-02", toStr, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}
	// окно инклюзивное по дате "to"
	to = to.AddDate(0, 0, 1)

	if h.cache != nil {
		if raw, err := h.cache.GetSlotsRaw(c.Request.Context(), id, fromStr, toStr); err == nil && raw != nil {
			c.Data(http.StatusOK, "application/json", raw)
			return
		}
	}

	resp, err := h.services.Slots.List(c.Request.Context(), id, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.cache != nil {
		if payload, err := json.Marshal(resp); err == nil {
			if err := h.cache.SetSlotsRaw(c.Request.Context(), id, fromStr, toStr, payload); err != nil {
				logger.Get().Warn("failed to cache slots response", "experience_id", id, "error", err)
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// MoveSlot обрабатывает PATCH /api/slots/move
func (h *Handlers) MoveSlot(c *gin.Context) {
	var req models.MoveSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	slot, err := h.services.Slots.Move(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// UpdateSlotCapacity обрабатывает PATCH /api/slots/capacity
func (h *Handlers) UpdateSlotCapacity(c *gin.Context) {
	var req models.UpdateSlotCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	slot, err := h.services.Slots.UpdateCapacity(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// CheckCapacity обрабатывает POST /api/capacity/check
func (h *Handlers) CheckCapacity(c *gin.Context) {
	var req models.CapacityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	resp, err := h.services.Slots.CheckCapacity(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
