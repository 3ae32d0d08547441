package catalog

import "context"

// Service defines the interface for the catalog service.
type Service interface {
	CreateBook(ctx context.Context, b Book) (*Book, error)
	GetBook(ctx context.Context, isbn string) (*Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	UpdateFields(ctx context.Context, isbn string, patch FieldPatch) (*Book, error)
	AdjustStock(ctx context.Context, isbn string, delta int) (*Book, error)
	// DecrementStock deducts all lines atomically; used by checkout.
	DecrementStock(ctx context.Context, lines []StockLine) error
	RemoveBook(ctx context.Context, isbn string) error
	// OnLowStock registers a callback fired once per downward threshold
	// crossing, whatever caused the stock change.
	OnLowStock(fn LowStockFunc)
}
