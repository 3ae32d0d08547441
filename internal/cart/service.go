package cart

import "context"

// Service defines the interface for the cart service. All operations are
// scoped by the opaque customer identity supplied by the caller.
type Service interface {
	GetCart(ctx context.Context, customerID string) (*Cart, error)
	AddItem(ctx context.Context, customerID, isbn string, quantity int) (*Cart, error)
	UpdateQuantity(ctx context.Context, customerID, isbn string, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, customerID, isbn string) (*Cart, error)
	Clear(ctx context.Context, customerID string) (*Cart, error)
}
