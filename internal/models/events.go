package models

import "time"

// NATS Event Types
const (
	EventReservationRequested = "reservation.requested"
	EventReservationApproved  = "reservation.approved"
	EventReservationDeclined  = "reservation.declined"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationPaid      = "reservation.paid"
	EventReservationCheckedIn = "reservation.checked_in"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationExpired   = "reservation.expired"
	EventSlotsMaterialized    = "slots.materialized"
)

// ReservationStatusEvent represents a lifecycle transition of a reservation.
// The engine only exposes status and timestamps; delivery to email/CRM and
// calendar sync is owned by external consumers.
type ReservationStatusEvent struct {
	ReservationID int64     `json:"reservation_id"`
	ExperienceID  int64     `json:"experience_id"`
	SlotID        int64     `json:"slot_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReservationExpiredEvent represents a hold expiry performed by the sweep.
type ReservationExpiredEvent struct {
	ReservationID int64     `json:"reservation_id"`
	ExperienceID  int64     `json:"experience_id"`
	SlotID        int64     `json:"slot_id"`
	HeldSince     time.Time `json:"held_since"`
	Timestamp     time.Time `json:"timestamp"`
}

// SlotsMaterializedEvent represents an applied materialization plan.
type SlotsMaterializedEvent struct {
	ExperienceID int64     `json:"experience_id"`
	Created      int       `json:"created"`
	Updated      int       `json:"updated"`
	Retired      int       `json:"retired"`
	Timestamp    time.Time `json:"timestamp"`
}
