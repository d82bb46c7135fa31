package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createExperiencesTable,
		createSlotsTable,
		createReservationsTable,
		createSlotsStartIndex,
		createReservationsSlotIndex,
		createReservationsHoldIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

// Experiences keep the canonical nested documents in JSONB. The legacy_*
// columns mirror the old flat keys still written by older admin tooling; the
// repository translates them into the canonical model on read when the
// nested document is absent.
const createExperiencesTable = `
CREATE TABLE IF NOT EXISTS experiences (
    id SERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    description TEXT,
    currency VARCHAR(3) NOT NULL DEFAULT 'EUR',
    recurrence JSONB,
    ticket_types JSONB,
    addon_types JSONB,
    adjustments JSONB,
    legacy_days_csv VARCHAR(100),
    legacy_start_time VARCHAR(5),
    legacy_duration_min INTEGER,
    legacy_capacity INTEGER,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createSlotsTable = `
CREATE TABLE IF NOT EXISTS slots (
    id SERIAL PRIMARY KEY,
    experience_id INTEGER NOT NULL REFERENCES experiences(id),
    start_datetime TIMESTAMPTZ NOT NULL,
    end_datetime TIMESTAMPTZ NOT NULL,
    capacity_total INTEGER NOT NULL DEFAULT 0,
    capacity_per_type JSONB,
    status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
    buffer_before_minutes INTEGER NOT NULL DEFAULT 0,
    buffer_after_minutes INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (experience_id, start_datetime)
);`

const createReservationsTable = `
CREATE TABLE IF NOT EXISTS reservations (
    id SERIAL PRIMARY KEY,
    experience_id INTEGER NOT NULL REFERENCES experiences(id),
    slot_id INTEGER NOT NULL REFERENCES slots(id),
    status VARCHAR(30) NOT NULL,
    pax JSONB NOT NULL,
    addons JSONB,
    total_amount BIGINT NOT NULL DEFAULT 0,
    currency VARCHAR(3) NOT NULL DEFAULT 'EUR',
    hold_expires_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createSlotsStartIndex = `
CREATE INDEX IF NOT EXISTS idx_slots_experience_start ON slots (experience_id, start_datetime);`

const createReservationsSlotIndex = `
CREATE INDEX IF NOT EXISTS idx_reservations_slot ON reservations (slot_id);`

const createReservationsHoldIndex = `
CREATE INDEX IF NOT EXISTS idx_reservations_hold ON reservations (status, hold_expires_at);`
