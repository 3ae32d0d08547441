package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookery/internal/replenish"

	"github.com/google/uuid"
)

// ReplenishLedger implements replenish.Ledger on Postgres. The status
// transition is a conditional update, so confirming a terminal order can
// never apply twice no matter how requests interleave.
type ReplenishLedger struct {
	db *sql.DB
}

func NewReplenishLedger(db *sql.DB) *ReplenishLedger {
	return &ReplenishLedger{db: db}
}

var _ replenish.Ledger = (*ReplenishLedger)(nil)

func (l *ReplenishLedger) Insert(ctx context.Context, o *replenish.Order) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO replenishment_orders (id, isbn, quantity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.ISBN, o.Quantity, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert replenishment order: %w", err)
	}
	return nil
}

func (l *ReplenishLedger) Get(ctx context.Context, id uuid.UUID) (*replenish.Order, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, isbn, quantity, status, created_at, updated_at
		FROM replenishment_orders WHERE id = $1`, id)
	var o replenish.Order
	err := row.Scan(&o.ID, &o.ISBN, &o.Quantity, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", replenish.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get replenishment order: %w", err)
	}
	return &o, nil
}

func (l *ReplenishLedger) Transition(ctx context.Context, id uuid.UUID, from, to replenish.Status) (*replenish.Order, error) {
	row := l.db.QueryRowContext(ctx, `
		UPDATE replenishment_orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING id, isbn, quantity, status, created_at, updated_at`,
		id, from, to)
	var o replenish.Order
	err := row.Scan(&o.ID, &o.ISBN, &o.Quantity, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Missing row or a status mismatch; look it up to tell them apart.
		if _, getErr := l.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: %s", replenish.ErrNotPending, id)
	}
	if err != nil {
		return nil, fmt.Errorf("transition replenishment order: %w", err)
	}
	return &o, nil
}

func (l *ReplenishLedger) List(ctx context.Context) ([]replenish.Order, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, isbn, quantity, status, created_at, updated_at
		FROM replenishment_orders ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list replenishment orders: %w", err)
	}
	defer rows.Close()

	out := make([]replenish.Order, 0)
	for rows.Next() {
		var o replenish.Order
		if err := rows.Scan(&o.ID, &o.ISBN, &o.Quantity, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan replenishment order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
