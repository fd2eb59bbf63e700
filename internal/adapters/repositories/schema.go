package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the database schema.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS delivery_stops (
		id TEXT PRIMARY KEY,
		external_order_id TEXT UNIQUE,
		seq BIGINT GENERATED ALWAYS AS IDENTITY,
		scheduled_date TEXT NOT NULL,
		customer_name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL,
		lon DOUBLE PRECISION NOT NULL DEFAULT 0,
		lat DOUBLE PRECISION NOT NULL DEFAULT 0,
		product TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		parcel_size TEXT NOT NULL,
		priority INTEGER NOT NULL,
		window_start TEXT NOT NULL DEFAULT '',
		window_end TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		raw_payload JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	`

	createStopsIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_delivery_stops_date_seq
	ON delivery_stops(scheduled_date, seq);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		route_date TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		total_distance_meters INTEGER NOT NULL DEFAULT 0,
		total_duration_seconds INTEGER NOT NULL DEFAULT 0,
		stop_sequence JSONB NOT NULL DEFAULT '[]',
		archived BOOLEAN NOT NULL DEFAULT FALSE,
		archived_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	`

	createTrackingQuery := `
	CREATE TABLE IF NOT EXISTS tracking_pings (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		route_id TEXT NOT NULL,
		stop_id TEXT NOT NULL DEFAULT '',
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	);
	`

	createTrackingIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_tracking_pings_route
	ON tracking_pings(route_id, recorded_at);
	`

	createNotificationsQuery := `
	CREATE TABLE IF NOT EXISTS notifications (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		stop_id TEXT NOT NULL,
		type TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);
	`

	createNotificationsIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_notifications_stop
	ON notifications(stop_id);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		formatted TEXT NOT NULL DEFAULT ''
	);
	`

	createSettingsQuery := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	statements := []string{
		createStopsQuery,
		createStopsIndexQuery,
		createRoutesQuery,
		createTrackingQuery,
		createTrackingIndexQuery,
		createNotificationsQuery,
		createNotificationsIndexQuery,
		createGeocodeCacheQuery,
		createSettingsQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// SeedDefaultSettings inserts the settings keys the optimizer reads,
// without overwriting operator-tuned values.
func SeedDefaultSettings(db *sql.DB, depotAddress string) error {
	defaults := map[string]string{
		"circular_route":     "false",
		"depot_address":      depotAddress,
		"dwell_seconds":      "180",
		"price_per_km_cents": "120",
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed settings: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
	INSERT INTO settings (key, value)
	VALUES ($1, $2)
	ON CONFLICT (key) DO NOTHING;
	`)
	if err != nil {
		return fmt.Errorf("seed settings: prepare insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range defaults {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("seed settings: insert %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed settings: commit tx: %w", err)
	}

	return nil
}
