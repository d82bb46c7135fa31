package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"kestrel/internal/cache"
	"kestrel/internal/capacity"
	"kestrel/internal/config"
	apperrors "kestrel/internal/errors"
	"kestrel/internal/logger"
	"kestrel/internal/messaging"
	"kestrel/internal/metrics"
	"kestrel/internal/models"
	"kestrel/internal/pricing"
	"kestrel/internal/repository"
)

// maxAdmissionRetries ограничивает число повторов при serialization failure.
// После исчерпания клиент получает race_detected и повторяет сам.
const maxAdmissionRetries = 3

// ReservationService управляет жизненным циклом бронирований. Любая операция,
// которая создаёт бронирование или меняет его статус, проходит через
// блокировку слота: проверка capacity ledger и запись неделимы.
type ReservationService struct {
	reservations *repository.ReservationRepository
	slots        *repository.SlotRepository
	experiences  *repository.ExperienceRepository
	nats         *messaging.NATSClient
	cache        *cache.Client
	metrics      *metrics.Metrics
	cfg          config.Booking
}

// NewReservationService создаёт сервис бронирований
func NewReservationService(deps Deps) *ReservationService {
	return &ReservationService{
		reservations: deps.Repos.Reservations,
		slots:        deps.Repos.Slots,
		experiences:  deps.Repos.Experiences,
		nats:         deps.NATS,
		cache:        deps.Cache,
		metrics:      deps.Metrics,
		cfg:          deps.Booking,
	}
}

// Create admits a new reservation. The capacity check runs inside the same
// locked transaction as the insert; a rejection is a CapacityError, a lost
// race after all retries is ErrRaceDetected.
func (s *ReservationService) Create(ctx context.Context, req *models.CreateReservationRequest) (*models.Reservation, error) {
	log := logger.WithContext(ctx)

	slot, err := s.slots.GetByID(ctx, req.SlotID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, apperrors.ErrNotFound
	}
	exp, err := s.experiences.GetByID(ctx, slot.ExperienceID)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, apperrors.ErrNotFound
	}

	if err := validateParty(exp, req.Pax); err != nil {
		return nil, err
	}
	if req.RequestToBook && s.cfg.RTBMode == models.RTBModeOff {
		return nil, apperrors.NewValidation("request-to-book is disabled")
	}

	breakdown := pricing.CalculateBreakdown(exp, slot.StartDatetime, req.Pax, req.Addons)

	res := &models.Reservation{
		ExperienceID: slot.ExperienceID,
		SlotID:       slot.ID,
		Pax:          req.Pax,
		Addons:       req.Addons,
		TotalAmount:  breakdown.Total,
		Currency:     breakdown.Currency,
	}
	subject := models.EventReservationConfirmed
	switch {
	case req.RequestToBook:
		res.Status = models.StatusPendingRequest
		expires := time.Now().UTC().Add(s.cfg.HoldTimeout)
		res.HoldExpiresAt = &expires
		subject = models.EventReservationRequested
	case req.MarkPaid:
		res.Status = models.StatusPaid
		subject = models.EventReservationPaid
	default:
		res.Status = models.StatusApprovedConfirmed
	}

	err = s.withAdmissionRetry(ctx, slot.ID, func(tx *sql.Tx, locked *models.SlotInstance) error {
		others, err := s.reservations.ListBySlotTx(ctx, tx, locked.ID)
		if err != nil {
			return err
		}
		check := capacity.Check(locked, req.Pax, others, s.cfg.BlockCapacityForPending)
		if !check.Allowed {
			return capacityErrorFrom(check)
		}
		return s.reservations.CreateTx(ctx, tx, res)
	})
	if err != nil {
		if s.metrics != nil && apperrors.IsCapacity(err) {
			var ce *apperrors.CapacityError
			errors.As(err, &ce)
			s.metrics.ReservationsRejected.WithLabelValues(ce.Code).Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ReservationsAdmitted.WithLabelValues(string(res.Status)).Inc()
	}
	s.invalidateSlots(ctx, res.ExperienceID)
	publishEvent(s.nats, subject, &models.ReservationStatusEvent{
		ReservationID: res.ID,
		ExperienceID:  res.ExperienceID,
		SlotID:        res.SlotID,
		To:            string(res.Status),
		Timestamp:     time.Now().UTC(),
	})
	log.Info("reservation created",
		"reservation_id", res.ID, "slot_id", res.SlotID, "status", res.Status, "total", res.TotalAmount)
	return res, nil
}

// GetByID возвращает бронирование по ID
func (s *ReservationService) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, apperrors.ErrNotFound
	}
	return res, nil
}

// List возвращает бронирования, опционально отфильтрованные по experience
func (s *ReservationService) List(ctx context.Context, experienceID *int64) ([]models.Reservation, error) {
	return s.reservations.List(ctx, experienceID)
}

// Approve moves a pending request forward. The target status depends on the
// request-to-book mode: pay_later keeps the money step, confirm does not.
func (s *ReservationService) Approve(ctx context.Context, id int64) (*models.Reservation, error) {
	target := models.StatusApprovedConfirmed
	if s.cfg.RTBMode == models.RTBModePayLater {
		target = models.StatusApprovedPendingPayment
	}
	return s.transition(ctx, id, target, models.EventReservationApproved, false)
}

// Decline rejects a pending request. Declining an already declined
// reservation is a no-op.
func (s *ReservationService) Decline(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.transition(ctx, id, models.StatusDeclined, models.EventReservationDeclined, true)
}

// Cancel releases the reservation's seats. Cancelling an already cancelled
// reservation is a no-op.
func (s *ReservationService) Cancel(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.transition(ctx, id, models.StatusCancelled, models.EventReservationCancelled, true)
}

// MarkPaid records payment for an approved reservation.
func (s *ReservationService) MarkPaid(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.transition(ctx, id, models.StatusPaid, models.EventReservationPaid, false)
}

// CheckIn записывает прибытие гостя
func (s *ReservationService) CheckIn(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.transition(ctx, id, models.StatusCheckedIn, models.EventReservationCheckedIn, false)
}

// transition выполняет смену статуса под блокировкой слота. Переход в
// состояние, потребляющее capacity, из непотребляющего повторно проверяет
// ledger: hold мог не блокировать места, а слот — успеть заполниться.
func (s *ReservationService) transition(ctx context.Context, id int64, target models.ReservationStatus, subject string, idempotent bool) (*models.Reservation, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated *models.Reservation
	var noop bool
	err = s.withAdmissionRetry(ctx, current.SlotID, func(tx *sql.Tx, slot *models.SlotInstance) error {
		fresh, err := s.reservations.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if fresh == nil {
			return apperrors.ErrNotFound
		}
		if idempotent && fresh.Status == target {
			noop = true
			updated = fresh
			return nil
		}
		if err := ValidateTransition(fresh.Status, target); err != nil {
			return err
		}

		blockPending := s.cfg.BlockCapacityForPending
		if !fresh.Status.Consumes(blockPending) && target.Consumes(blockPending) {
			others := make([]models.Reservation, 0)
			all, err := s.reservations.ListBySlotTx(ctx, tx, slot.ID)
			if err != nil {
				return err
			}
			for _, r := range all {
				if r.ID != fresh.ID {
					others = append(others, r)
				}
			}
			check := capacity.Check(slot, fresh.Pax, others, blockPending)
			if !check.Allowed {
				return capacityErrorFrom(check)
			}
		}

		if err := s.reservations.UpdateStatusTx(ctx, tx, id, target); err != nil {
			return err
		}
		fresh.Status = target
		if target != models.StatusPendingRequest {
			fresh.HoldExpiresAt = nil
		}
		updated = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return updated, nil
	}

	s.invalidateSlots(ctx, updated.ExperienceID)
	publishEvent(s.nats, subject, &models.ReservationStatusEvent{
		ReservationID: updated.ID,
		ExperienceID:  updated.ExperienceID,
		SlotID:        updated.SlotID,
		From:          string(current.Status),
		To:            string(target),
		Timestamp:     time.Now().UTC(),
	})
	logger.WithContext(ctx).Info("reservation transition",
		"reservation_id", id, "from", current.Status, "to", target)
	return updated, nil
}

// ExpireHold cancels a single timed-out pending request. Returns false when
// the reservation was approved or declined between the sweep query and the
// lock, which is the expected race and not an error.
func (s *ReservationService) ExpireHold(ctx context.Context, reservationID int64, now time.Time) (bool, error) {
	current, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return false, err
	}
	if current == nil {
		return false, nil
	}

	var expired *models.Reservation
	err = s.slots.WithSlotLock(ctx, current.SlotID, func(tx *sql.Tx, slot *models.SlotInstance) error {
		fresh, err := s.reservations.GetByIDTx(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if fresh == nil || fresh.Status != models.StatusPendingRequest {
			return nil
		}
		if fresh.HoldExpiresAt == nil || fresh.HoldExpiresAt.After(now) {
			return nil
		}
		if err := s.reservations.UpdateStatusTx(ctx, tx, reservationID, models.StatusCancelled); err != nil {
			return err
		}
		expired = fresh
		return nil
	})
	if err != nil || expired == nil {
		return false, err
	}

	if s.metrics != nil {
		s.metrics.HoldsExpired.Inc()
	}
	s.invalidateSlots(ctx, expired.ExperienceID)
	publishEvent(s.nats, models.EventReservationExpired, &models.ReservationExpiredEvent{
		ReservationID: expired.ID,
		ExperienceID:  expired.ExperienceID,
		SlotID:        expired.SlotID,
		HeldSince:     expired.CreatedAt,
		Timestamp:     time.Now().UTC(),
	})
	logger.Get().Info("hold expired", "reservation_id", expired.ID, "slot_id", expired.SlotID)
	return true, nil
}

// ListExpiredHolds возвращает кандидатов для sweep-джобы
func (s *ReservationService) ListExpiredHolds(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	return s.reservations.ListExpiredHolds(ctx, now)
}

func (s *ReservationService) withAdmissionRetry(ctx context.Context, slotID int64, fn func(tx *sql.Tx, slot *models.SlotInstance) error) error {
	var err error
	for attempt := 0; attempt < maxAdmissionRetries; attempt++ {
		err = s.slots.WithSlotLock(ctx, slotID, fn)
		if err == nil || !isSerializationFailure(err) {
			return err
		}
		if s.metrics != nil {
			s.metrics.RaceRetries.Inc()
		}
		logger.Get().Warn("admission retry after serialization failure",
			"slot_id", slotID, "attempt", attempt+1)
	}
	return apperrors.ErrRaceDetected
}

func (s *ReservationService) invalidateSlots(ctx context.Context, experienceID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSlots(ctx, experienceID); err != nil {
		logger.Get().Warn("failed to invalidate slots cache", "experience_id", experienceID, "error", err)
	}
}

// validateParty проверяет заявку против pricing schema: неизвестные типы
// билетов и нарушение min/max per booking отклоняются до обращения к базе.
func validateParty(exp *models.Experience, pax map[string]int) error {
	if len(exp.TicketTypes) > 0 {
		for slug, n := range pax {
			if n < 0 {
				return apperrors.NewValidation("ticket type %q: negative quantity", slug)
			}
			if exp.TicketType(slug) == nil {
				return apperrors.NewValidation("unknown ticket type %q", slug)
			}
		}
		for i := range exp.TicketTypes {
			tt := &exp.TicketTypes[i]
			qty := pax[tt.Slug]
			if qty == 0 {
				continue
			}
			if tt.MinPerBooking != nil && qty < *tt.MinPerBooking {
				return apperrors.NewValidation("ticket type %q: at least %d required per booking", tt.Slug, *tt.MinPerBooking)
			}
			if tt.MaxPerBooking != nil && qty > *tt.MaxPerBooking {
				return apperrors.NewValidation("ticket type %q: at most %d allowed per booking", tt.Slug, *tt.MaxPerBooking)
			}
		}
	}
	total := 0
	for _, n := range pax {
		total += n
	}
	if total <= 0 {
		return apperrors.NewValidation("at least one seat must be requested")
	}
	return nil
}

func capacityErrorFrom(res capacity.Result) error {
	return &apperrors.CapacityError{
		Code:      res.Reason,
		Message:   res.Message,
		Remaining: res.RemainingTotal,
	}
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
