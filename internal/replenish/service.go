package replenish

import (
	"context"

	"bookery/internal/catalog"

	"github.com/google/uuid"
)

// Service defines the interface for the replenishment service.
type Service interface {
	Place(ctx context.Context, isbn string, quantity int) (*Order, error)
	Confirm(ctx context.Context, id uuid.UUID) (*Order, error)
	Cancel(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	// HandleLowStock is the auto-replenish rule; register it with the
	// catalog's low-stock signal.
	HandleLowStock(b catalog.Book)
}
