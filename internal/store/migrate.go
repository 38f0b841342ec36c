package store

import "database/sql"

// migrate applies the idempotent schema. Checkpoints and attendance records
// are date-partitioned by the service_date column and never deleted.
func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS buses (
		id         TEXT PRIMARY KEY,
		route_id   TEXT NOT NULL,
		shift      TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS refresh_tokens (
		driver_id  TEXT NOT NULL,
		token      TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked    BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS entitlements (
		id          TEXT PRIMARY KEY,
		qr_code     TEXT UNIQUE NOT NULL,
		kind        TEXT NOT NULL,
		owner_id    TEXT NOT NULL,
		route_id    TEXT NOT NULL,
		shift       TEXT NOT NULL,
		status      TEXT NOT NULL,
		valid_from  DATE,
		valid_until DATE,
		travel_date DATE,
		scan_count  INT NOT NULL DEFAULT 0,
		max_scans   INT NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS trip_checkpoints (
		id                          TEXT PRIMARY KEY,
		bus_id                      TEXT NOT NULL,
		driver_id                   TEXT NOT NULL,
		service_date                DATE NOT NULL,
		phase                       TEXT NOT NULL,
		start_odometer              BIGINT,
		university_arrival_odometer BIGINT,
		return_start_odometer       BIGINT,
		home_arrival_odometer       BIGINT,
		total_distance              BIGINT,
		boarded_count               INT NOT NULL DEFAULT 0,
		return_boarded_count        INT NOT NULL DEFAULT 0,
		created_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (bus_id, service_date)
	);

	CREATE TABLE IF NOT EXISTS attendance_records (
		id                    TEXT PRIMARY KEY,
		entitlement_id        TEXT NOT NULL,
		owner_id              TEXT NOT NULL,
		route_id              TEXT NOT NULL,
		service_date          DATE NOT NULL,
		shift                 TEXT NOT NULL,
		onboarded_at          TIMESTAMPTZ,
		reached_university_at TIMESTAMPTZ,
		left_for_home_at      TIMESTAMPTZ,
		reached_home_at       TIMESTAMPTZ,
		final_status          TEXT,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (entitlement_id, service_date)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_date  ON attendance_records(service_date);
	CREATE INDEX IF NOT EXISTS idx_checkpoints_date ON trip_checkpoints(service_date);
	`
	_, err := db.Exec(schema)
	return err
}
