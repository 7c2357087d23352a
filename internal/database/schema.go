package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup. Every statement is idempotent so a restart
// against an existing database is a no-op.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		id          BIGSERIAL PRIMARY KEY,
		device_id   TEXT NOT NULL UNIQUE,
		device_name TEXT NOT NULL DEFAULT '',
		platform    TEXT NOT NULL DEFAULT '',
		last_active TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS calendars (
		id            BIGSERIAL PRIMARY KEY,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		color         TEXT NOT NULL DEFAULT '#3498db',
		device_id     TEXT NOT NULL REFERENCES devices(device_id),
		is_shared     BOOLEAN NOT NULL DEFAULT FALSE,
		share_code    TEXT UNIQUE,
		share_expire  TIMESTAMPTZ,
		edit_password TEXT,
		last_sync     TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS schedules (
		id           BIGSERIAL PRIMARY KEY,
		local_id     TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		location     TEXT NOT NULL DEFAULT '',
		start_time   TIMESTAMPTZ NOT NULL,
		end_time     TIMESTAMPTZ NOT NULL,
		is_all_day   BOOLEAN NOT NULL DEFAULT FALSE,
		color        TEXT NOT NULL DEFAULT '',
		reminder     INTEGER,
		is_completed BOOLEAN NOT NULL DEFAULT FALSE,
		calendar_id  BIGINT NOT NULL REFERENCES calendars(id),
		device_id    TEXT NOT NULL,
		sync_status  TEXT NOT NULL DEFAULT 'new',
		last_synced  TIMESTAMPTZ,
		is_deleted   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ,
		UNIQUE (calendar_id, local_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_calendar_start
		ON schedules (calendar_id, start_time)`,
}

// EnsureSchema creates the three relations the core persists into.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
