package service

import (
	"context"
	"time"

	"kestrel/internal/config"
	apperrors "kestrel/internal/errors"
	"kestrel/internal/logger"
	"kestrel/internal/models"
	"kestrel/internal/pricing"
	"kestrel/internal/repository"
	"kestrel/internal/schedule"
	"kestrel/internal/search"
)

// ExperienceService управляет experiences и их pricing/schedule конфигурацией.
type ExperienceService struct {
	experiences *repository.ExperienceRepository
	slots       *repository.SlotRepository
	search      *search.Client
	cfg         config.Booking
}

// NewExperienceService создаёт сервис experiences
func NewExperienceService(deps Deps) *ExperienceService {
	return &ExperienceService{
		experiences: deps.Repos.Experiences,
		slots:       deps.Repos.Slots,
		search:      deps.Search,
		cfg:         deps.Booking,
	}
}

// Create создаёт experience и индексирует его в поиске
func (s *ExperienceService) Create(ctx context.Context, req *models.CreateExperienceRequest) (*models.Experience, error) {
	currency := req.Currency
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	exp := &models.Experience{
		Title:       req.Title,
		Description: req.Description,
		Currency:    currency,
	}
	if err := s.experiences.Create(ctx, exp); err != nil {
		return nil, err
	}
	s.index(ctx, exp)
	logger.WithContext(ctx).Info("experience created", "experience_id", exp.ID, "title", exp.Title)
	return exp, nil
}

// GetByID возвращает experience по ID
func (s *ExperienceService) GetByID(ctx context.Context, id int64) (*models.Experience, error) {
	exp, err := s.experiences.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, apperrors.ErrNotFound
	}
	return exp, nil
}

// List returns the catalogue. A non-empty query goes through the search
// index; when the index is unavailable the database listing is served
// unfiltered rather than failing the request.
func (s *ExperienceService) List(ctx context.Context, query string, page, pageSize int) (models.ListExperiencesResponse, error) {
	if query != "" && s.search != nil {
		docs, err := s.search.Search(ctx, query, page, pageSize)
		if err == nil {
			resp := make(models.ListExperiencesResponse, 0, len(docs))
			for i := range docs {
				resp = append(resp, models.ListExperiencesResponseItem{
					ID:        docs[i].ID,
					Title:     docs[i].Title,
					Currency:  docs[i].Currency,
					PriceFrom: docs[i].PriceFrom,
				})
			}
			return resp, nil
		}
		logger.Get().Warn("search unavailable, falling back to database", "error", err)
	}

	experiences, err := s.experiences.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make(models.ListExperiencesResponse, 0, len(experiences))
	for i := range experiences {
		exp := &experiences[i]
		resp = append(resp, models.ListExperiencesResponseItem{
			ID:        exp.ID,
			Title:     exp.Title,
			Currency:  exp.Currency,
			PriceFrom: exp.PriceFrom(),
		})
	}
	return resp, nil
}

// UpdateSchedule replaces the recurrence rule and pricing schema. The rule is
// dry-run through the resolver first so a conflicting override surfaces here
// as a configuration error instead of at materialization time.
func (s *ExperienceService) UpdateSchedule(ctx context.Context, id int64, req *models.UpdateScheduleRequest) (*models.Experience, error) {
	exp, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := validateSchema(req.TicketTypes, req.AddonTypes, req.Adjustments); err != nil {
		return nil, err
	}
	if _, err := schedule.Resolve(req.Recurrence, schedule.OccurrenceDefaults{Capacity: s.cfg.DefaultSlotCapacity}); err != nil {
		return nil, err
	}

	if err := s.experiences.UpdateSchedule(ctx, id, req.Recurrence, req.TicketTypes, req.AddonTypes, req.Adjustments); err != nil {
		return nil, err
	}

	exp.Recurrence = req.Recurrence
	exp.TicketTypes = req.TicketTypes
	exp.AddonTypes = req.AddonTypes
	exp.Adjustments = req.Adjustments
	exp.UpdatedAt = time.Now().UTC()
	s.index(ctx, exp)
	logger.WithContext(ctx).Info("schedule updated", "experience_id", id)
	return exp, nil
}

// Quote прайсит заявку без создания бронирования. SlotID опционален: без
// него time-of-day adjustments не применяются.
func (s *ExperienceService) Quote(ctx context.Context, req *models.QuoteRequest) (*pricing.Breakdown, error) {
	exp, err := s.GetByID(ctx, req.ExperienceID)
	if err != nil {
		return nil, err
	}

	var slotStart time.Time
	if req.SlotID != nil {
		slot, err := s.slots.GetByID(ctx, *req.SlotID)
		if err != nil {
			return nil, err
		}
		if slot == nil || slot.ExperienceID != exp.ID {
			return nil, apperrors.ErrNotFound
		}
		slotStart = slot.StartDatetime
	}

	return quoteFor(exp, slotStart, req.Pax, req.Addons)
}

// quoteFor проверяет заявку против schema и прайсит её. Квота и создание
// бронирования валидируют одинаково, чтобы принятый quote не отклонялся
// на следующем шаге по min/max per booking.
func quoteFor(exp *models.Experience, slotStart time.Time, pax map[string]int, addons map[string]float64) (*pricing.Breakdown, error) {
	if err := validateParty(exp, pax); err != nil {
		return nil, err
	}
	breakdown := pricing.CalculateBreakdown(exp, slotStart, pax, addons)
	return &breakdown, nil
}

// index обновляет поисковый документ. Поиск вторичен: отказ индекса
// логируется и не валит запись в базу.
func (s *ExperienceService) index(ctx context.Context, exp *models.Experience) {
	if s.search == nil {
		return
	}
	doc := &search.ExperienceDoc{
		ID:          exp.ID,
		Title:       exp.Title,
		Description: exp.Description,
		Currency:    exp.Currency,
		PriceFrom:   exp.PriceFrom(),
	}
	if err := s.search.Index(ctx, doc); err != nil {
		logger.Get().Warn("failed to index experience", "experience_id", exp.ID, "error", err)
	}
}

// validateSchema проверяет pricing schema до записи
func validateSchema(tickets []models.TicketType, addons []models.AddonType, adjustments []models.PriceAdjustment) error {
	seen := make(map[string]bool)
	for i := range tickets {
		tt := &tickets[i]
		if tt.Slug == "" {
			return apperrors.NewValidation("ticket type %d: empty slug", i)
		}
		if seen[tt.Slug] {
			return apperrors.NewValidation("duplicate ticket type slug %q", tt.Slug)
		}
		seen[tt.Slug] = true
		if tt.Price < 0 {
			return apperrors.NewValidation("ticket type %q: negative price", tt.Slug)
		}
		if tt.Capacity != nil && *tt.Capacity < 0 {
			return apperrors.NewValidation("ticket type %q: negative capacity", tt.Slug)
		}
		if tt.MinPerBooking != nil && tt.MaxPerBooking != nil && *tt.MinPerBooking > *tt.MaxPerBooking {
			return apperrors.NewValidation("ticket type %q: min_per_booking exceeds max_per_booking", tt.Slug)
		}
	}
	seenAddons := make(map[string]bool)
	for i := range addons {
		at := &addons[i]
		if at.Slug == "" {
			return apperrors.NewValidation("addon type %d: empty slug", i)
		}
		if seenAddons[at.Slug] {
			return apperrors.NewValidation("duplicate addon type slug %q", at.Slug)
		}
		seenAddons[at.Slug] = true
		if at.Price < 0 {
			return apperrors.NewValidation("addon type %q: negative price", at.Slug)
		}
		if at.PricingMode != models.PricingPerPerson && at.PricingMode != models.PricingPerBooking {
			return apperrors.NewValidation("addon type %q: unknown pricing mode %q", at.Slug, at.PricingMode)
		}
	}
	for i := range adjustments {
		adj := &adjustments[i]
		if adj.StartHour < 0 || adj.StartHour > 23 || adj.EndHour < 0 || adj.EndHour > 24 {
			return apperrors.NewValidation("adjustment %q: hour window out of range", adj.Label)
		}
	}
	return nil
}
