package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kestrel/internal/database"
	"kestrel/internal/models"
)

type ExperienceRepository struct {
	db *database.DB
}

func NewExperienceRepository(db *database.DB) *ExperienceRepository {
	return &ExperienceRepository{db: db}
}

func (r *ExperienceRepository) Create(ctx context.Context, exp *models.Experience) error {
	query := `
		INSERT INTO experiences (title, description, currency)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		exp.Title,
		exp.Description,
		exp.Currency,
	).Scan(&exp.ID, &exp.CreatedAt, &exp.UpdatedAt)
}

func (r *ExperienceRepository) GetByID(ctx context.Context, id int64) (*models.Experience, error) {
	query := `
		SELECT id, title, description, currency,
		       recurrence, ticket_types, addon_types, adjustments,
		       legacy_days_csv, legacy_start_time, legacy_duration_min, legacy_capacity,
		       created_at, updated_at
		FROM experiences
		WHERE id = $1`

	exp, err := scanExperience(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return exp, err
}

func (r *ExperienceRepository) List(ctx context.Context) ([]models.Experience, error) {
	query := `
		SELECT id, title, description, currency,
		       recurrence, ticket_types, addon_types, adjustments,
		       legacy_days_csv, legacy_start_time, legacy_duration_min, legacy_capacity,
		       created_at, updated_at
		FROM experiences
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Experience
	for rows.Next() {
		exp, err := scanExperience(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *exp)
	}
	return out, rows.Err()
}

// UpdateSchedule replaces the canonical nested documents and clears the
// legacy flat keys: once the new shape is written the old one no longer
// shadows it.
func (r *ExperienceRepository) UpdateSchedule(ctx context.Context, id int64, rule *models.RecurrenceRule, tickets []models.TicketType, addons []models.AddonType, adjustments []models.PriceAdjustment) error {
	ruleJSON, err := marshalNullable(rule)
	if err != nil {
		return err
	}
	ticketsJSON, err := marshalNullable(tickets)
	if err != nil {
		return err
	}
	addonsJSON, err := marshalNullable(addons)
	if err != nil {
		return err
	}
	adjustmentsJSON, err := marshalNullable(adjustments)
	if err != nil {
		return err
	}

	query := `
		UPDATE experiences
		SET recurrence = $1, ticket_types = $2, addon_types = $3, adjustments = $4,
		    legacy_days_csv = NULL, legacy_start_time = NULL,
		    legacy_duration_min = NULL, legacy_capacity = NULL,
		    updated_at = NOW()
		WHERE id = $5`

	res, err := r.db.ExecContext(ctx, query, ruleJSON, ticketsJSON, addonsJSON, adjustmentsJSON, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExperience(row rowScanner) (*models.Experience, error) {
	exp := &models.Experience{}
	var (
		ruleJSON, ticketsJSON, addonsJSON, adjustmentsJSON []byte
		legacyDays, legacyStart                            *string
		legacyDuration, legacyCapacity                     *int
	)

	err := row.Scan(
		&exp.ID,
		&exp.Title,
		&exp.Description,
		&exp.Currency,
		&ruleJSON,
		&ticketsJSON,
		&addonsJSON,
		&adjustmentsJSON,
		&legacyDays,
		&legacyStart,
		&legacyDuration,
		&legacyCapacity,
		&exp.CreatedAt,
		&exp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalNullable(ruleJSON, &exp.Recurrence); err != nil {
		return nil, fmt.Errorf("experience %d: bad recurrence document: %w", exp.ID, err)
	}
	if err := unmarshalNullable(ticketsJSON, &exp.TicketTypes); err != nil {
		return nil, fmt.Errorf("experience %d: bad ticket schema: %w", exp.ID, err)
	}
	if err := unmarshalNullable(addonsJSON, &exp.AddonTypes); err != nil {
		return nil, fmt.Errorf("experience %d: bad addon schema: %w", exp.ID, err)
	}
	if err := unmarshalNullable(adjustmentsJSON, &exp.Adjustments); err != nil {
		return nil, fmt.Errorf("experience %d: bad adjustments: %w", exp.ID, err)
	}

	// Legacy flat keys survive from older admin tooling. They only apply when
	// no canonical document exists; the engine never sees the flat shape.
	if exp.Recurrence == nil {
		exp.Recurrence = recurrenceFromLegacy(legacyDays, legacyStart, legacyDuration, legacyCapacity)
	}

	return exp, nil
}

func recurrenceFromLegacy(daysCSV, startTime *string, durationMin, capacity *int) *models.RecurrenceRule {
	if daysCSV == nil || startTime == nil || durationMin == nil {
		return nil
	}

	var days []time.Weekday
	for _, part := range strings.Split(*daysCSV, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		days = append(days, time.Weekday(n))
	}
	if len(days) == 0 {
		return nil
	}

	slot := models.TimeSlotOverride{TimeOfDay: *startTime}
	if capacity != nil {
		slot.Capacity = capacity
	}
	return &models.RecurrenceRule{
		Frequency:       "weekly",
		Days:            days,
		DurationMinutes: *durationMin,
		TimeSlots:       []models.TimeSlotOverride{slot},
	}
}

func marshalNullable(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

func unmarshalNullable(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
