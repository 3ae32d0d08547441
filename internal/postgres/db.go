package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection.
func Open(dsn string, maxOpenConns int, connLifetime time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if connLifetime > 0 {
		db.SetConnMaxLifetime(connLifetime)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables the stores need if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS books (
		isbn       TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		authors    TEXT[] NOT NULL DEFAULT '{}',
		publisher  TEXT NOT NULL DEFAULT '',
		price      NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		category   TEXT NOT NULL,
		stock      INT NOT NULL CHECK (stock >= 0),
		threshold  INT NOT NULL CHECK (threshold >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS customer_orders (
		id           UUID PRIMARY KEY,
		customer_id  TEXT NOT NULL,
		lines        JSONB NOT NULL,
		total_amount NUMERIC(12,2) NOT NULL,
		status       TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		seq          BIGSERIAL
	);
	CREATE INDEX IF NOT EXISTS customer_orders_customer_idx
		ON customer_orders (customer_id, seq);

	CREATE TABLE IF NOT EXISTS replenishment_orders (
		id         UUID PRIMARY KEY,
		isbn       TEXT NOT NULL,
		quantity   INT NOT NULL CHECK (quantity > 0),
		status     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		seq        BIGSERIAL
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
