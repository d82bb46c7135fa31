package service

import (
	"context"
	"database/sql"
	"time"

	"kestrel/internal/cache"
	"kestrel/internal/capacity"
	"kestrel/internal/config"
	apperrors "kestrel/internal/errors"
	"kestrel/internal/logger"
	"kestrel/internal/messaging"
	"kestrel/internal/metrics"
	"kestrel/internal/models"
	"kestrel/internal/repository"
	"kestrel/internal/schedule"
)

// SlotService материализует расписание в слоты и правит отдельные слоты.
type SlotService struct {
	slots        *repository.SlotRepository
	experiences  *repository.ExperienceRepository
	reservations *repository.ReservationRepository
	nats         *messaging.NATSClient
	cache        *cache.Client
	metrics      *metrics.Metrics
	cfg          config.Booking
}

// NewSlotService создаёт сервис слотов
func NewSlotService(deps Deps) *SlotService {
	return &SlotService{
		slots:        deps.Repos.Slots,
		experiences:  deps.Repos.Experiences,
		reservations: deps.Repos.Reservations,
		nats:         deps.NATS,
		cache:        deps.Cache,
		metrics:      deps.Metrics,
		cfg:          deps.Booking,
	}
}

// Materialize resolves the experience's recurrence rule over the window and
// applies the resulting plan in one transaction. Running it twice over the
// same window is a no-op.
func (s *SlotService) Materialize(ctx context.Context, experienceID int64, req *models.MaterializeRequest) (*models.MaterializeResponse, error) {
	log := logger.WithContext(ctx)

	exp, err := s.experiences.GetByID(ctx, experienceID)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, apperrors.ErrNotFound
	}

	window, err := parseWindow(req.From, req.To)
	if err != nil {
		return nil, err
	}

	occurrences, err := schedule.Resolve(exp.Recurrence, schedule.OccurrenceDefaults{
		Capacity: s.cfg.DefaultSlotCapacity,
	})
	if err != nil {
		return nil, err
	}
	// Пустое правило - валидное состояние: нечего материализовывать, но и
	// массово отзывать будущие слоты без явного правила мы не будем.
	if len(occurrences) == 0 {
		return &models.MaterializeResponse{}, nil
	}

	existing, err := s.slots.ListWithReservationCounts(ctx, experienceID)
	if err != nil {
		return nil, err
	}

	plan, err := schedule.Materialize(experienceID, occurrences, window, existing, schedule.Options{
		ReplaceExisting: req.ReplaceExisting,
		CapacityPerType: perTypeCaps(exp.TicketTypes),
		Now:             time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	resp := &models.MaterializeResponse{
		Created: len(plan.Create),
		Updated: len(plan.Update),
		Retired: len(plan.Retire),
	}
	if plan.Empty() {
		return resp, nil
	}
	if err := s.slots.ApplyPlan(ctx, plan); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SlotsMaterialized.WithLabelValues("created").Add(float64(resp.Created))
		s.metrics.SlotsMaterialized.WithLabelValues("updated").Add(float64(resp.Updated))
		s.metrics.SlotsMaterialized.WithLabelValues("retired").Add(float64(resp.Retired))
	}
	s.invalidate(ctx, experienceID)
	publishEvent(s.nats, models.EventSlotsMaterialized, &models.SlotsMaterializedEvent{
		ExperienceID: experienceID,
		Created:      resp.Created,
		Updated:      resp.Updated,
		Retired:      resp.Retired,
		Timestamp:    time.Now().UTC(),
	})
	log.Info("slots materialized", "experience_id", experienceID,
		"created", resp.Created, "updated", resp.Updated, "retired", resp.Retired)
	return resp, nil
}

// List возвращает слоты с остатками мест, посчитанными через capacity ledger
func (s *SlotService) List(ctx context.Context, experienceID int64, from, to time.Time) (models.ListSlotsResponse, error) {
	slots, err := s.slots.ListByExperience(ctx, experienceID, from, to)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return models.ListSlotsResponse{}, nil
	}

	ids := make([]int64, len(slots))
	for i := range slots {
		ids[i] = slots[i].ID
	}
	bySlot, err := s.reservations.ListBySlots(ctx, ids)
	if err != nil {
		return nil, err
	}

	resp := make(models.ListSlotsResponse, 0, len(slots))
	for i := range slots {
		slot := &slots[i]
		occ := capacity.Remaining(slot, bySlot[slot.ID], s.cfg.BlockCapacityForPending)
		resp = append(resp, models.ListSlotsResponseItem{
			ID:               slot.ID,
			Start:            slot.StartDatetime,
			End:              slot.EndDatetime,
			Status:           slot.Status,
			CapacityTotal:    slot.CapacityTotal,
			Remaining:        occ.RemainingTotal,
			RemainingPerType: occ.RemainingPerType,
		})
	}
	return resp, nil
}

// Move reschedules one slot. The buffer overlap check against sibling slots
// runs under the slot lock; a conflict is a configuration error, not a silent
// shift.
func (s *SlotService) Move(ctx context.Context, req *models.MoveSlotRequest) (*models.SlotInstance, error) {
	var moved *models.SlotInstance
	err := s.slots.WithSlotLock(ctx, req.SlotID, func(tx *sql.Tx, slot *models.SlotInstance) error {
		siblings, err := s.slots.ListSiblings(ctx, slot.ExperienceID)
		if err != nil {
			return err
		}
		newStart := req.NewStart.UTC()
		if err := schedule.CheckMove(slot, newStart, siblings); err != nil {
			return err
		}
		duration := slot.EndDatetime.Sub(slot.StartDatetime)
		if err := s.slots.MoveTx(ctx, tx, slot.ID, newStart, newStart.Add(duration)); err != nil {
			return err
		}
		slot.StartDatetime = newStart
		slot.EndDatetime = newStart.Add(duration)
		moved = slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, moved.ExperienceID)
	logger.WithContext(ctx).Info("slot moved", "slot_id", moved.ID, "new_start", moved.StartDatetime)
	return moved, nil
}

// UpdateCapacity edits the capacity of one slot. Overbooked slots are
// accepted as-is: existing reservations are never auto-cancelled, the slot
// just stops admitting new ones.
func (s *SlotService) UpdateCapacity(ctx context.Context, req *models.UpdateSlotCapacityRequest) (*models.SlotInstance, error) {
	if req.CapacityTotal <= 0 {
		return nil, apperrors.NewValidation("capacity_total must be positive")
	}
	var updated *models.SlotInstance
	err := s.slots.WithSlotLock(ctx, req.SlotID, func(tx *sql.Tx, slot *models.SlotInstance) error {
		if err := s.slots.UpdateCapacityTx(ctx, tx, slot.ID, req.CapacityTotal, req.CapacityPerType); err != nil {
			return err
		}
		slot.CapacityTotal = req.CapacityTotal
		slot.CapacityPerType = req.CapacityPerType
		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, updated.ExperienceID)
	logger.WithContext(ctx).Info("slot capacity updated", "slot_id", updated.ID, "capacity", updated.CapacityTotal)
	return updated, nil
}

// CheckCapacity - advisory проверка. Результат не резервирует места:
// настоящая проверка повторяется внутри транзакции создания бронирования.
func (s *SlotService) CheckCapacity(ctx context.Context, req *models.CapacityCheckRequest) (*models.CapacityCheckResponse, error) {
	slot, err := s.slots.GetByID(ctx, req.SlotID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, apperrors.ErrNotFound
	}
	reservations, err := s.reservations.ListBySlot(ctx, slot.ID)
	if err != nil {
		return nil, err
	}
	res := capacity.Check(slot, req.Pax, reservations, s.cfg.BlockCapacityForPending)
	return &models.CapacityCheckResponse{
		Allowed:          res.Allowed,
		RemainingTotal:   res.RemainingTotal,
		RemainingPerType: res.RemainingPerType,
		Message:          res.Message,
	}, nil
}

func (s *SlotService) invalidate(ctx context.Context, experienceID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSlots(ctx, experienceID); err != nil {
		logger.Get().Warn("failed to invalidate slots cache", "experience_id", experienceID, "error", err)
	}
}

// perTypeCaps собирает per-type лимиты из pricing schema
func perTypeCaps(tickets []models.TicketType) map[string]int {
	caps := make(map[string]int)
	for i := range tickets {
		if tickets[i].Capacity != nil {
			caps[tickets[i].Slug] = *tickets[i].Capacity
		}
	}
	if len(caps) == 0 {
		return nil
	}
	return caps
}

// parseWindow разбирает инклюзивное окно дат "2006-01-02"
func parseWindow(from, to string) (schedule.DateRange, error) {
	f, err := time.ParseInLocation("2006-01-02", from, time.UTC)
	if err != nil {
		return schedule.DateRange{}, apperrors.NewValidation("invalid from date %q", from)
	}
	t, err := time.ParseInLocation("2006-01-02", to, time.UTC)
	if err != nil {
		return schedule.DateRange{}, apperrors.NewValidation("invalid to date %q", to)
	}
	if t.Before(f) {
		return schedule.DateRange{}, apperrors.NewValidation("to date precedes from date")
	}
	return schedule.DateRange{From: f, To: t}, nil
}
