package checkout

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the checkout coordinator.
type Service interface {
	// Submit runs the checkout pipeline for the customer's current cart.
	// Every gate aborts with no partial effect: the stock deduction is
	// all-or-nothing and the order is only recorded after it succeeds.
	Submit(ctx context.Context, customerID string, payment Payment) (*CustomerOrder, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*CustomerOrder, error)
	ListOrders(ctx context.Context, customerID string) ([]CustomerOrder, error)
}
