package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"kestrel/internal/database"
	"kestrel/internal/models"
)

type ReservationRepository struct {
	db *database.DB
}

func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `id, experience_id, slot_id, status, pax, addons,
	total_amount, currency, hold_expires_at, created_at, updated_at`

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return res, err
}

func (r *ReservationRepository) List(ctx context.Context, experienceID *int64) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations`
	var args []interface{}
	if experienceID != nil {
		query += ` WHERE experience_id = $1`
		args = append(args, *experienceID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListBySlot returns every reservation of a slot, outside any transaction.
// Used for advisory checks and occupancy listings only; admission decisions
// re-read via ListBySlotTx under the slot lock.
func (r *ReservationRepository) ListBySlot(ctx context.Context, slotID int64) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE slot_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListBySlots loads reservations for a set of slots in one query, keyed by
// slot, for occupancy computation over a listing window.
func (r *ReservationRepository) ListBySlots(ctx context.Context, slotIDs []int64) (map[int64][]models.Reservation, error) {
	out := make(map[int64][]models.Reservation, len(slotIDs))
	if len(slotIDs) == 0 {
		return out, nil
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE slot_id = ANY($1) ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(slotIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	all, err := collectReservations(rows)
	if err != nil {
		return nil, err
	}
	for _, res := range all {
		out[res.SlotID] = append(out[res.SlotID], res)
	}
	return out, nil
}

// ListBySlotTx re-reads the slot's reservations inside the critical section;
// this is the read the admission decision is based on.
func (r *ReservationRepository) ListBySlotTx(ctx context.Context, tx *sql.Tx, slotID int64) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE slot_id = $1 ORDER BY created_at`
	rows, err := tx.QueryContext(ctx, query, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// CreateTx inserts a reservation inside the slot critical section.
func (r *ReservationRepository) CreateTx(ctx context.Context, tx *sql.Tx, res *models.Reservation) error {
	paxJSON, err := marshalNullable(res.Pax)
	if err != nil {
		return err
	}
	addonsJSON, err := marshalNullable(res.Addons)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reservations (experience_id, slot_id, status, pax, addons,
		                          total_amount, currency, hold_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return tx.QueryRowContext(ctx, query,
		res.ExperienceID,
		res.SlotID,
		res.Status,
		paxJSON,
		addonsJSON,
		res.TotalAmount,
		res.Currency,
		res.HoldExpiresAt,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
}

// GetByIDTx re-reads a reservation inside the critical section.
func (r *ReservationRepository) GetByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return res, err
}

// UpdateStatusTx applies a status transition inside the critical section. The
// hold deadline is cleared once the reservation leaves pending_request.
func (r *ReservationRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.ReservationStatus) error {
	query := `
		UPDATE reservations
		SET status = $1,
		    hold_expires_at = CASE WHEN $1 = 'pending_request' THEN hold_expires_at ELSE NULL END,
		    updated_at = NOW()
		WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, status, id)
	return err
}

// ListExpiredHolds returns pending requests whose hold deadline has passed.
// The sweep re-checks each one under its slot lock before cancelling.
func (r *ReservationRepository) ListExpiredHolds(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = 'pending_request' AND hold_expires_at IS NOT NULL AND hold_expires_at < $1
		ORDER BY hold_expires_at ASC`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	res := &models.Reservation{}
	var paxJSON, addonsJSON []byte
	err := row.Scan(
		&res.ID,
		&res.ExperienceID,
		&res.SlotID,
		&res.Status,
		&paxJSON,
		&addonsJSON,
		&res.TotalAmount,
		&res.Currency,
		&res.HoldExpiresAt,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalNullable(paxJSON, &res.Pax); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(addonsJSON, &res.Addons); err != nil {
		return nil, err
	}
	return res, nil
}

func collectReservations(rows *sql.Rows) ([]models.Reservation, error) {
	var out []models.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}
