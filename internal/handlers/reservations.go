package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kestrel/internal/models"
)

// CreateReservation обрабатывает POST /api/reservations
func (h *Handlers) CreateReservation(c *gin.Context) {
	var req models.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	res, err := h.services.Reservations.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.CreateReservationResponse{
		ID:            res.ID,
		Status:        string(res.Status),
		TotalAmount:   res.TotalAmount,
		Currency:      res.Currency,
		HoldExpiresAt: res.HoldExpiresAt,
	})
}

// ListReservations обрабатывает GET /api/reservations?experience_id=
func (h *Handlers) ListReservations(c *gin.Context) {
	var experienceID *int64
	if raw := c.Query("experience_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid experience_id"})
			return
		}
		experienceID = &id
	}

	reservations, err := h.services.Reservations.List(c.Request.Context(), experienceID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make(models.ListReservationsResponse, 0, len(reservations))
	for i := range reservations {
		r := &reservations[i]
		resp = append(resp, models.ListReservationsResponseItem{
			ID:            r.ID,
			ExperienceID:  r.ExperienceID,
			SlotID:        r.SlotID,
			Status:        string(r.Status),
			Pax:           r.Pax,
			TotalAmount:   r.TotalAmount,
			HoldExpiresAt: r.HoldExpiresAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// GetReservation обрабатывает GET /api/reservations/:id
func (h *Handlers) GetReservation(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	res, err := h.services.Reservations.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ApproveReservation обрабатывает PATCH /api/reservations/approve
func (h *Handlers) ApproveReservation(c *gin.Context) {
	h.reservationAction(c, h.services.Reservations.Approve)
}

// DeclineReservation обрабатывает PATCH /api/reservations/decline
func (h *Handlers) DeclineReservation(c *gin.Context) {
	h.reservationAction(c, h.services.Reservations.Decline)
}

// CancelReservation обрабатывает PATCH /api/reservations/cancel
func (h *Handlers) CancelReservation(c *gin.Context) {
	h.reservationAction(c, h.services.Reservations.Cancel)
}

// PayReservation обрабатывает PATCH /api/reservations/pay
func (h *Handlers) PayReservation(c *gin.Context) {
	h.reservationAction(c, h.services.Reservations.MarkPaid)
}

// CheckInReservation обрабатывает PATCH /api/reservations/checkin
func (h *Handlers) CheckInReservation(c *gin.Context) {
	h.reservationAction(c, h.services.Reservations.CheckIn)
}

func (h *Handlers) reservationAction(c *gin.Context, action func(context.Context, int64) (*models.Reservation, error)) {
	var req models.ReservationActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	res, err := action(c.Request.Context(), req.ReservationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     res.ID,
		"status": res.Status,
	})
}
