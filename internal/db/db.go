package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Open connects to postgres and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return conn, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		phone       TEXT NOT NULL DEFAULT '',
		email       TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS campaigns (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		message       TEXT NOT NULL,
		tone          TEXT NOT NULL DEFAULT 'casual',
		image_base64  TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'draft',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS sends (
		id             TEXT PRIMARY KEY,
		campaign_id    TEXT NOT NULL REFERENCES campaigns(id),
		customer_id    TEXT NOT NULL,
		customer_name  TEXT NOT NULL DEFAULT '',
		remote_jid     TEXT NOT NULL,
		content        TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'scheduled',
		error_message  TEXT NOT NULL DEFAULT '',
		attempts       INTEGER NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		sent_at        TIMESTAMPTZ,
		failed_at      TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sends_campaign_status ON sends (campaign_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_sends_remote_jid ON sends (remote_jid)`,
	`CREATE TABLE IF NOT EXISTS customer_history (
		id                TEXT PRIMARY KEY,
		customer_id       TEXT NOT NULL,
		campaign_id       TEXT NOT NULL,
		send_id           TEXT NOT NULL,
		outcome           TEXT NOT NULL,
		next_eligible_at  TIMESTAMPTZ NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS daily_limits (
		campaign_id  TEXT NOT NULL,
		day          DATE NOT NULL,
		sent_count   INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (campaign_id, day)
	)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(conn *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
