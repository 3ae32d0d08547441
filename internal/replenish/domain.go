package replenish

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("replenishment order not found")

	// ErrNotPending rejects any transition attempted on a terminal order.
	ErrNotPending = errors.New("replenishment order is not pending")
)

// Status is the three-state lifecycle of a replenishment order. Pending is
// the only state a transition may leave; Confirmed and Cancelled are
// terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Order is a publisher reorder request for one book.
type Order struct {
	ID        uuid.UUID `json:"id"`
	ISBN      string    `json:"isbn"`
	Quantity  int       `json:"quantity"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
