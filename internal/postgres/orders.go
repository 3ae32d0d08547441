package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"bookery/internal/checkout"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// OrderHistory implements checkout.History on Postgres. Order lines are
// stored as a JSONB snapshot; the table has no update path.
type OrderHistory struct {
	db *sql.DB
}

func NewOrderHistory(db *sql.DB) *OrderHistory {
	return &OrderHistory{db: db}
}

var _ checkout.History = (*OrderHistory)(nil)

func (h *OrderHistory) Append(ctx context.Context, o *checkout.CustomerOrder) error {
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("encode order lines: %w", err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO customer_orders (id, customer_id, lines, total_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.CustomerID, lines, o.TotalAmount, o.Status, o.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate order id %s", o.ID)
		}
		return fmt.Errorf("append order: %w", err)
	}
	return nil
}

func (h *OrderHistory) Get(ctx context.Context, id uuid.UUID) (*checkout.CustomerOrder, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT id, customer_id, lines, total_amount, status, created_at
		FROM customer_orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", checkout.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (h *OrderHistory) ListByCustomer(ctx context.Context, customerID string) ([]checkout.CustomerOrder, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, customer_id, lines, total_amount, status, created_at
		FROM customer_orders WHERE customer_id = $1 ORDER BY seq`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]checkout.CustomerOrder, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func scanOrder(row interface{ Scan(...any) error }) (*checkout.CustomerOrder, error) {
	var o checkout.CustomerOrder
	var lines []byte
	if err := row.Scan(&o.ID, &o.CustomerID, &lines, &o.TotalAmount, &o.Status, &o.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &o.Lines); err != nil {
		return nil, fmt.Errorf("decode order lines: %w", err)
	}
	return &o, nil
}
