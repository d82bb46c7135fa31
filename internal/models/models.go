package models

import "time"

// CreateExperienceRequest - модель для создания experience
type CreateExperienceRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description,omitempty"`
	Currency    string  `json:"currency,omitempty"`
}

// CreateExperienceResponse - модель ответа при создании experience
type CreateExperienceResponse struct {
	ID int64 `json:"id"`
}

// ListExperiencesResponseItem - элемент списка experiences
type ListExperiencesResponseItem struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Currency  string `json:"currency"`
	PriceFrom *int64 `json:"price_from,omitempty"`
}

// ListExperiencesResponse - список experiences
type ListExperiencesResponse []ListExperiencesResponseItem

// UpdateScheduleRequest replaces the recurrence rule and pricing schema of an
// experience. The engine re-validates invariants even though the admin layer
// sends sanitized input.
type UpdateScheduleRequest struct {
	Recurrence  *RecurrenceRule   `json:"recurrence,omitempty"`
	TicketTypes []TicketType      `json:"ticket_types,omitempty"`
	AddonTypes  []AddonType       `json:"addon_types,omitempty"`
	Adjustments []PriceAdjustment `json:"adjustments,omitempty"`
}

// MaterializeRequest - окно материализации слотов
type MaterializeRequest struct {
	From            string `json:"from" binding:"required"` // "2006-01-02"
	To              string `json:"to" binding:"required"`
	ReplaceExisting bool   `json:"replace_existing"`
}

// MaterializeResponse - применённый план материализации
type MaterializeResponse struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Retired int `json:"retired"`
}

// ListSlotsResponseItem - слот с occupancy, вычисленной через capacity ledger
type ListSlotsResponseItem struct {
	ID               int64          `json:"id"`
	Start            time.Time      `json:"start"`
	End              time.Time      `json:"end"`
	Status           string         `json:"status"`
	CapacityTotal    int            `json:"capacity_total"`
	Remaining        int            `json:"remaining"`
	RemainingPerType map[string]int `json:"remaining_per_type,omitempty"`
}

// ListSlotsResponse - список слотов
type ListSlotsResponse []ListSlotsResponseItem

// MoveSlotRequest - перенос слота; identity и бронирования сохраняются
type MoveSlotRequest struct {
	SlotID   int64     `json:"slot_id" binding:"required"`
	NewStart time.Time `json:"new_start" binding:"required"`
}

// UpdateSlotCapacityRequest - правка вместимости слота
type UpdateSlotCapacityRequest struct {
	SlotID          int64          `json:"slot_id" binding:"required"`
	CapacityTotal   int            `json:"capacity_total" binding:"required"`
	CapacityPerType map[string]int `json:"capacity_per_ticket_type,omitempty"`
}

// CapacityCheckRequest - advisory проверка вместимости
type CapacityCheckRequest struct {
	SlotID int64          `json:"slot_id" binding:"required"`
	Pax    map[string]int `json:"pax" binding:"required"`
}

// CapacityCheckResponse - результат проверки
type CapacityCheckResponse struct {
	Allowed          bool           `json:"allowed"`
	RemainingTotal   int            `json:"remaining_total"`
	RemainingPerType map[string]int `json:"remaining_per_type,omitempty"`
	Message          string         `json:"message,omitempty"`
}

// QuoteRequest - запрос прайсинга; SlotID опционален, без него adjustments
// по времени слота не применяются
type QuoteRequest struct {
	ExperienceID int64              `json:"experience_id" binding:"required"`
	SlotID       *int64             `json:"slot_id,omitempty"`
	Pax          map[string]int     `json:"pax" binding:"required"`
	Addons       map[string]float64 `json:"addons,omitempty"`
}

// CreateReservationRequest - модель для создания бронирования.
// RequestToBook включает RTB-режим (pending_request с hold).
type CreateReservationRequest struct {
	SlotID        int64              `json:"slot_id" binding:"required"`
	Pax           map[string]int     `json:"pax" binding:"required"`
	Addons        map[string]float64 `json:"addons,omitempty"`
	RequestToBook bool               `json:"request_to_book"`
	MarkPaid      bool               `json:"mark_paid"` // immediate mode: start at paid instead of approved_confirmed
}

// CreateReservationResponse - модель ответа при создании бронирования
type CreateReservationResponse struct {
	ID            int64      `json:"id"`
	Status        string     `json:"status"`
	TotalAmount   int64      `json:"total_amount"`
	Currency      string     `json:"currency"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
}

// ReservationActionRequest - запрос перехода статуса
type ReservationActionRequest struct {
	ReservationID int64 `json:"reservation_id" binding:"required"`
}

// ListReservationsResponseItem - элемент списка бронирований
type ListReservationsResponseItem struct {
	ID            int64          `json:"id"`
	ExperienceID  int64          `json:"experience_id"`
	SlotID        int64          `json:"slot_id"`
	Status        string         `json:"status"`
	Pax           map[string]int `json:"pax"`
	TotalAmount   int64          `json:"total_amount"`
	HoldExpiresAt *time.Time     `json:"hold_expires_at,omitempty"`
}

// ListReservationsResponse - список бронирований
type ListReservationsResponse []ListReservationsResponseItem
