package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"kestrel/internal/database"
	"kestrel/internal/models"
	"kestrel/internal/schedule"
)

type SlotRepository struct {
	db *database.DB
}

func NewSlotRepository(db *database.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `id, experience_id, start_datetime, end_datetime, capacity_total,
	capacity_per_type, status, buffer_before_minutes, buffer_after_minutes, created_at, updated_at`

func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*models.SlotInstance, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`
	slot, err := scanSlot(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return slot, err
}

func (r *SlotRepository) ListByExperience(ctx context.Context, experienceID int64, from, to time.Time) ([]models.SlotInstance, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE experience_id = $1 AND start_datetime >= $2 AND start_datetime < $3
		ORDER BY start_datetime`

	rows, err := r.db.QueryContext(ctx, query, experienceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

// ListSiblings returns every scheduled slot of the experience, used for the
// buffered-window check on move.
func (r *SlotRepository) ListSiblings(ctx context.Context, experienceID int64) ([]models.SlotInstance, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE experience_id = $1 AND status = 'scheduled'
		ORDER BY start_datetime`

	rows, err := r.db.QueryContext(ctx, query, experienceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

// ListWithReservationCounts returns the existing-slot snapshot the
// materializer diffs against: every slot of the experience together with its
// count of non-cancelled, non-declined reservations.
func (r *SlotRepository) ListWithReservationCounts(ctx context.Context, experienceID int64) ([]schedule.ExistingSlot, error) {
	query := `
		SELECT s.id, s.experience_id, s.start_datetime, s.end_datetime, s.capacity_total,
		       s.capacity_per_type, s.status, s.buffer_before_minutes, s.buffer_after_minutes,
		       s.created_at, s.updated_at,
		       COUNT(r.id) FILTER (WHERE r.status NOT IN ('cancelled', 'declined')) AS active_reservations
		FROM slots s
		LEFT JOIN reservations r ON r.slot_id = s.id
		WHERE s.experience_id = $1
		GROUP BY s.id
		ORDER BY s.start_datetime`

	rows, err := r.db.QueryContext(ctx, query, experienceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.ExistingSlot
	for rows.Next() {
		var ex schedule.ExistingSlot
		var perType []byte
		err := rows.Scan(
			&ex.ID,
			&ex.ExperienceID,
			&ex.StartDatetime,
			&ex.EndDatetime,
			&ex.CapacityTotal,
			&perType,
			&ex.Status,
			&ex.BufferBeforeMinutes,
			&ex.BufferAfterMinutes,
			&ex.CreatedAt,
			&ex.UpdatedAt,
			&ex.ActiveReservations,
		)
		if err != nil {
			return nil, err
		}
		if err := unmarshalNullable(perType, &ex.CapacityPerType); err != nil {
			return nil, err
		}
		ex.StartDatetime = ex.StartDatetime.UTC()
		ex.EndDatetime = ex.EndDatetime.UTC()
		out = append(out, ex)
	}
	return out, rows.Err()
}

// ApplyPlan commits a whole materialization plan in one transaction: either
// every create, update and retire lands, or none of them do.
func (r *SlotRepository) ApplyPlan(ctx context.Context, plan *schedule.MaterializationPlan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range plan.Create {
		slot := &plan.Create[i]
		perType, err := marshalNullable(slot.CapacityPerType)
		if err != nil {
			return err
		}
		query := `
			INSERT INTO slots (experience_id, start_datetime, end_datetime, capacity_total,
			                   capacity_per_type, status, buffer_before_minutes, buffer_after_minutes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`
		err = tx.QueryRowContext(ctx, query,
			slot.ExperienceID,
			slot.StartDatetime,
			slot.EndDatetime,
			slot.CapacityTotal,
			perType,
			slot.Status,
			slot.BufferBeforeMinutes,
			slot.BufferAfterMinutes,
		).Scan(&slot.ID)
		if err != nil {
			return fmt.Errorf("create slot at %s: %w", slot.StartDatetime, err)
		}
	}

	for i := range plan.Update {
		slot := &plan.Update[i]
		perType, err := marshalNullable(slot.CapacityPerType)
		if err != nil {
			return err
		}
		query := `
			UPDATE slots
			SET capacity_total = $1, capacity_per_type = $2,
			    buffer_before_minutes = $3, buffer_after_minutes = $4, updated_at = NOW()
			WHERE id = $5`
		if _, err := tx.ExecContext(ctx, query,
			slot.CapacityTotal, perType, slot.BufferBeforeMinutes, slot.BufferAfterMinutes, slot.ID); err != nil {
			return fmt.Errorf("update slot %d: %w", slot.ID, err)
		}
	}

	if len(plan.Retire) > 0 {
		query := `UPDATE slots SET status = 'cancelled', updated_at = NOW() WHERE id = ANY($1)`
		if _, err := tx.ExecContext(ctx, query, pq.Array(plan.Retire)); err != nil {
			return fmt.Errorf("retire slots: %w", err)
		}
	}

	return tx.Commit()
}

// WithSlotLock runs fn inside a transaction holding a row lock on the slot.
// Every capacity-affecting write goes through here: the lock serializes
// concurrent writers on the same slot so the ledger re-check and the write
// are indivisible.
func (r *SlotRepository) WithSlotLock(ctx context.Context, slotID int64, fn func(tx *sql.Tx, slot *models.SlotInstance) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1 FOR UPDATE`
	slot, err := scanSlot(tx.QueryRowContext(ctx, query, slotID))
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return err
	}

	if err := fn(tx, slot); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateCapacityTx refreshes the capacity fields of a locked slot.
func (r *SlotRepository) UpdateCapacityTx(ctx context.Context, tx *sql.Tx, slotID int64, capacityTotal int, perType map[string]int) error {
	perTypeJSON, err := marshalNullable(perType)
	if err != nil {
		return err
	}
	query := `UPDATE slots SET capacity_total = $1, capacity_per_type = $2, updated_at = NOW() WHERE id = $3`
	_, err = tx.ExecContext(ctx, query, capacityTotal, perTypeJSON, slotID)
	return err
}

// MoveTx rewrites the start/end of a locked slot, preserving identity and its
// reservations.
func (r *SlotRepository) MoveTx(ctx context.Context, tx *sql.Tx, slotID int64, newStart, newEnd time.Time) error {
	query := `UPDATE slots SET start_datetime = $1, end_datetime = $2, updated_at = NOW() WHERE id = $3`
	_, err := tx.ExecContext(ctx, query, newStart, newEnd, slotID)
	return err
}

func scanSlot(row rowScanner) (*models.SlotInstance, error) {
	slot := &models.SlotInstance{}
	var perType []byte
	err := row.Scan(
		&slot.ID,
		&slot.ExperienceID,
		&slot.StartDatetime,
		&slot.EndDatetime,
		&slot.CapacityTotal,
		&perType,
		&slot.Status,
		&slot.BufferBeforeMinutes,
		&slot.BufferAfterMinutes,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalNullable(perType, &slot.CapacityPerType); err != nil {
		return nil, err
	}
	slot.StartDatetime = slot.StartDatetime.UTC()
	slot.EndDatetime = slot.EndDatetime.UTC()
	return slot, nil
}

func collectSlots(rows *sql.Rows) ([]models.SlotInstance, error) {
	var out []models.SlotInstance
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *slot)
	}
	return out, rows.Err()
}
