package cart

import (
	"context"
	"fmt"
	"log/slog"

	"bookery/internal/catalog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// service implements the Service interface. Stock checks here read the
// catalog at call time and are advisory only; checkout re-validates every
// line against live stock.
type service struct {
	store   Store
	catalog catalog.Service
	tracer  trace.Tracer
}

// NewService creates a new cart service instance.
func NewService(store Store, catalogSvc catalog.Service) Service {
	return &service{
		store:   store,
		catalog: catalogSvc,
		tracer:  otel.Tracer("bookery/cart"),
	}
}

func (s *service) GetCart(ctx context.Context, customerID string) (*Cart, error) {
	return s.store.Get(ctx, customerID)
}

func (s *service) AddItem(ctx context.Context, customerID, isbn string, quantity int) (*Cart, error) {
	ctx, span := s.tracer.Start(ctx, "cart.add_item",
		trace.WithAttributes(
			attribute.String("book.isbn", isbn),
			attribute.Int("quantity", quantity),
		))
	defer span.End()

	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1, got %d", quantity)
	}

	book, err := s.catalog.GetBook(ctx, isbn)
	if err != nil {
		return nil, err
	}

	c, err := s.store.Update(ctx, customerID, func(c *Cart) error {
		inCart := 0
		if i := c.Find(isbn); i >= 0 {
			inCart = c.Items[i].Quantity
		}
		if inCart+quantity > book.Stock {
			return &catalog.InsufficientStockError{ISBN: isbn, Available: book.Stock}
		}
		if i := c.Find(isbn); i >= 0 {
			c.Items[i].Quantity += quantity
		} else {
			c.Items = append(c.Items, Item{
				ISBN:      book.ISBN,
				Title:     book.Title,
				UnitPrice: book.Price,
				Quantity:  quantity,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("cart item added", "customer_id", customerID, "isbn", isbn, "quantity", quantity)
	return c, nil
}

func (s *service) UpdateQuantity(ctx context.Context, customerID, isbn string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, customerID, isbn)
	}

	book, err := s.catalog.GetBook(ctx, isbn)
	if err != nil {
		return nil, err
	}

	return s.store.Update(ctx, customerID, func(c *Cart) error {
		i := c.Find(isbn)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrItemNotFound, isbn)
		}
		if quantity > book.Stock {
			return &catalog.InsufficientStockError{ISBN: isbn, Available: book.Stock}
		}
		c.Items[i].Quantity = quantity
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, customerID, isbn string) (*Cart, error) {
	// Removing an absent line is a no-op, not an error.
	return s.store.Update(ctx, customerID, func(c *Cart) error {
		if i := c.Find(isbn); i >= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		}
		return nil
	})
}

func (s *service) Clear(ctx context.Context, customerID string) (*Cart, error) {
	return s.store.Update(ctx, customerID, func(c *Cart) error {
		c.Items = c.Items[:0]
		return nil
	})
}
