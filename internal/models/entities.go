package models

import (
	"time"
)

// Slot statuses
const (
	SlotScheduled = "scheduled"
	SlotCancelled = "cancelled"
)

// ReservationStatus is the lifecycle state of a booking attempt.
type ReservationStatus string

const (
	StatusPendingRequest         ReservationStatus = "pending_request"
	StatusApprovedPendingPayment ReservationStatus = "approved_pending_payment"
	StatusApprovedConfirmed      ReservationStatus = "approved_confirmed"
	StatusPaid                   ReservationStatus = "paid"
	StatusCheckedIn              ReservationStatus = "checked_in"
	StatusDeclined               ReservationStatus = "declined"
	StatusCancelled              ReservationStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusDeclined || s == StatusCancelled || s == StatusCheckedIn
}

// Consumes reports whether a reservation in this status holds capacity.
// A pending request consumes only when the engine is configured to block
// capacity during the RTB hold.
func (s ReservationStatus) Consumes(blockPending bool) bool {
	switch s {
	case StatusApprovedPendingPayment, StatusApprovedConfirmed, StatusPaid, StatusCheckedIn:
		return true
	case StatusPendingRequest:
		return blockPending
	default:
		return false
	}
}

// RTB (request-to-book) modes
const (
	RTBModeOff      = "off"       // immediate booking only
	RTBModePayLater = "pay_later" // approval leads to approved_pending_payment
	RTBModeConfirm  = "confirm"   // approval confirms directly
)

// Addon pricing modes
const (
	PricingPerPerson  = "per_person"
	PricingPerBooking = "per_booking"
)

// TimeSlotOverride is one daily time-of-day slot within a recurrence rule.
// Unset optional fields inherit the rule-level or caller-supplied default.
// Days, when present, restricts the override to a subset of the rule's days.
type TimeSlotOverride struct {
	TimeOfDay           string         `json:"time_of_day"` // "15:04"
	Capacity            *int           `json:"capacity,omitempty"`
	BufferBeforeMinutes *int           `json:"buffer_before_minutes,omitempty"`
	BufferAfterMinutes  *int           `json:"buffer_after_minutes,omitempty"`
	Days                []time.Weekday `json:"days,omitempty"`
}

// RecurrenceRule is the declarative weekly schedule of an experience.
type RecurrenceRule struct {
	Frequency       string             `json:"frequency"` // only "weekly"
	Days            []time.Weekday     `json:"days"`
	DurationMinutes int                `json:"duration_minutes"`
	TimeSlots       []TimeSlotOverride `json:"time_slots"`
}

// IsActionable reports whether the rule can generate any slots. An empty rule
// is a valid "no schedule configured" state, not an error.
func (r *RecurrenceRule) IsActionable() bool {
	return r != nil && len(r.Days) > 0 && len(r.TimeSlots) > 0
}

// TicketType describes one bookable ticket kind of an experience.
// Price is in minor currency units.
type TicketType struct {
	Slug           string `json:"slug"`
	Label          string `json:"label"`
	Price          int64  `json:"price"`
	Capacity       *int   `json:"capacity,omitempty"` // per-type cap
	MinPerBooking  *int   `json:"min_per_booking,omitempty"`
	MaxPerBooking  *int   `json:"max_per_booking,omitempty"`
	UseAsPriceFrom bool   `json:"use_as_price_from,omitempty"`
}

// AddonType describes an optional extra priced per person or per booking.
type AddonType struct {
	Slug        string `json:"slug"`
	Label       string `json:"label"`
	Price       int64  `json:"price"`
	PricingMode string `json:"pricing_mode"`
}

// PriceAdjustment is a percent modifier applied when the slot start falls on
// one of the listed weekdays within [StartHour, EndHour). Empty Weekdays means
// every day. Percent may be negative (discount).
type PriceAdjustment struct {
	Label     string         `json:"label"`
	Weekdays  []time.Weekday `json:"weekdays,omitempty"`
	StartHour int            `json:"start_hour"`
	EndHour   int            `json:"end_hour"`
	Percent   int            `json:"percent"`
}

// AppliesAt reports whether the adjustment is active for the given slot start.
func (a *PriceAdjustment) AppliesAt(slotStart time.Time) bool {
	if a.StartHour != 0 || a.EndHour != 0 {
		h := slotStart.Hour()
		if h < a.StartHour || h >= a.EndHour {
			return false
		}
	}
	if len(a.Weekdays) == 0 {
		return true
	}
	for _, d := range a.Weekdays {
		if d == slotStart.Weekday() {
			return true
		}
	}
	return false
}

// Experience is a bookable product owning its schedule and pricing schema.
type Experience struct {
	ID          int64             `json:"id" db:"id"`
	Title       string            `json:"title" db:"title"`
	Description *string           `json:"description" db:"description"`
	Currency    string            `json:"currency" db:"currency"`
	Recurrence  *RecurrenceRule   `json:"recurrence,omitempty"`
	TicketTypes []TicketType      `json:"ticket_types,omitempty"`
	AddonTypes  []AddonType       `json:"addon_types,omitempty"`
	Adjustments []PriceAdjustment `json:"adjustments,omitempty"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// PriceFrom returns the advertised "from" price: the ticket type flagged as
// the price-from reference, or the cheapest type when none is flagged.
// Returns nil when the experience has no ticket types.
func (e *Experience) PriceFrom() *int64 {
	var cheapest *int64
	for i := range e.TicketTypes {
		tt := &e.TicketTypes[i]
		if tt.UseAsPriceFrom {
			p := tt.Price
			return &p
		}
		if cheapest == nil || tt.Price < *cheapest {
			p := tt.Price
			cheapest = &p
		}
	}
	return cheapest
}

// TicketType returns the schema entry for slug, or nil.
func (e *Experience) TicketType(slug string) *TicketType {
	for i := range e.TicketTypes {
		if e.TicketTypes[i].Slug == slug {
			return &e.TicketTypes[i]
		}
	}
	return nil
}

// SlotInstance is a single bookable time-bounded instance of an experience.
// Times are UTC. The buffered window [start-before, end+after) must never
// intersect a sibling slot's buffered window.
type SlotInstance struct {
	ID                  int64          `json:"id" db:"id"`
	ExperienceID        int64          `json:"experience_id" db:"experience_id"`
	StartDatetime       time.Time      `json:"start_datetime" db:"start_datetime"`
	EndDatetime         time.Time      `json:"end_datetime" db:"end_datetime"`
	CapacityTotal       int            `json:"capacity_total" db:"capacity_total"`
	CapacityPerType     map[string]int `json:"capacity_per_ticket_type,omitempty"`
	Status              string         `json:"status" db:"status"`
	BufferBeforeMinutes int            `json:"buffer_before_minutes" db:"buffer_before_minutes"`
	BufferAfterMinutes  int            `json:"buffer_after_minutes" db:"buffer_after_minutes"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at" db:"updated_at"`
}

// BufferedWindow returns the exclusion window of the slot.
func (s *SlotInstance) BufferedWindow() (time.Time, time.Time) {
	start := s.StartDatetime.Add(-time.Duration(s.BufferBeforeMinutes) * time.Minute)
	end := s.EndDatetime.Add(time.Duration(s.BufferAfterMinutes) * time.Minute)
	return start, end
}

// Reservation is a booking attempt against a slot. Never physically deleted;
// terminal states are retained for history.
type Reservation struct {
	ID            int64              `json:"id" db:"id"`
	ExperienceID  int64              `json:"experience_id" db:"experience_id"`
	SlotID        int64              `json:"slot_id" db:"slot_id"`
	Status        ReservationStatus  `json:"status" db:"status"`
	Pax           map[string]int     `json:"pax"`
	Addons        map[string]float64 `json:"addons,omitempty"`
	TotalAmount   int64              `json:"total_amount" db:"total_amount"`
	Currency      string             `json:"currency" db:"currency"`
	HoldExpiresAt *time.Time         `json:"hold_expires_at,omitempty" db:"hold_expires_at"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" db:"updated_at"`
}

// TotalPax returns the summed party size across all ticket types.
func (r *Reservation) TotalPax() int {
	total := 0
	for _, n := range r.Pax {
		total += n
	}
	return total
}
