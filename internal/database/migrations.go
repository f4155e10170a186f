package database

import (
	"context"
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations(ctx context.Context) error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createBookingsTable,
		createBookingsUserIndex,
		createBookingsStatusIndex,
		createBookingsProcessingIndex,
	}

	for i, migration := range migrations {
		slog.Debug("Running migration", "step", i+1)
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully", "count", len(migrations))
	return nil
}

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    seq BIGSERIAL UNIQUE,
    id VARCHAR(64) PRIMARY KEY,
    user_id VARCHAR(255) NOT NULL,
    catalog_item_id VARCHAR(255) NOT NULL,
    item_title VARCHAR(500) NOT NULL DEFAULT '',
    item_price BIGINT NOT NULL,
    item_price_unit VARCHAR(16) NOT NULL,
    start_date DATE,
    end_date DATE,
    traveler_count INTEGER NOT NULL,
    add_on_ids TEXT[] NOT NULL DEFAULT '{}',
    special_requests TEXT NOT NULL DEFAULT '',
    contact_name VARCHAR(200) NOT NULL,
    contact_email VARCHAR(320) NOT NULL,
    contact_phone VARCHAR(32) NOT NULL DEFAULT '',
    duration_days INTEGER NOT NULL DEFAULT 0,
    units INTEGER NOT NULL,
    base_price BIGINT NOT NULL,
    add_ons_total BIGINT NOT NULL DEFAULT 0,
    service_fee BIGINT NOT NULL,
    total_price BIGINT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
    payment_reference VARCHAR(255) NOT NULL DEFAULT '',
    version BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (item_price > 0),
    CHECK (item_price_unit IN ('night', 'week', 'person')),
    CHECK (traveler_count >= 1),
    CHECK (end_date IS NULL OR start_date IS NULL OR end_date > start_date),
    CHECK (total_price = base_price + add_ons_total + service_fee),
    CHECK (status IN ('pending', 'confirmed', 'paid', 'cancelled', 'completed')),
    CHECK (payment_status IN ('pending', 'processing', 'paid', 'failed', 'refunded'))
);`

const createBookingsUserIndex = `
CREATE INDEX IF NOT EXISTS bookings_user_seq_idx ON bookings (user_id, seq);`

const createBookingsStatusIndex = `
CREATE INDEX IF NOT EXISTS bookings_status_created_idx ON bookings (status, created_at);`

const createBookingsProcessingIndex = `
CREATE INDEX IF NOT EXISTS bookings_processing_updated_idx ON bookings (updated_at) WHERE payment_status = 'processing';`
