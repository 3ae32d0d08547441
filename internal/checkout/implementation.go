package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bookery/internal/cart"
	"bookery/internal/catalog"
	"bookery/internal/events"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// service implements the Service interface.
type service struct {
	carts     cart.Service
	catalog   catalog.Service
	history   History
	publisher events.Publisher
	tracer    trace.Tracer
	placed    metric.Int64Counter
}

// NewService creates a new checkout coordinator instance.
func NewService(carts cart.Service, catalogSvc catalog.Service, history History, publisher events.Publisher) Service {
	s := &service{
		carts:     carts,
		catalog:   catalogSvc,
		history:   history,
		publisher: publisher,
		tracer:    otel.Tracer("bookery/checkout"),
	}
	meter := otel.Meter("bookery/checkout")
	s.placed, _ = meter.Int64Counter("checkout.orders_placed")
	return s
}

func (s *service) Submit(ctx context.Context, customerID string, payment Payment) (*CustomerOrder, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.submit",
		trace.WithAttributes(attribute.String("customer.id", customerID)))
	defer span.End()

	// Gate 1: payment format.
	if err := payment.Validate(); err != nil {
		return nil, err
	}

	// Gate 2: non-empty cart.
	c, err := s.carts.GetCart(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// Snapshot the order before touching stock; the cart is the source of
	// truth for titles and unit prices at checkout time.
	order := &CustomerOrder{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     "placed",
		CreatedAt:  time.Now().UTC(),
	}
	lines := make([]catalog.StockLine, 0, len(c.Items))
	for _, it := range c.Items {
		order.Lines = append(order.Lines, OrderLine{
			ISBN:      it.ISBN,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: float64(it.Quantity) * it.UnitPrice,
		})
		order.TotalAmount += float64(it.Quantity) * it.UnitPrice
		lines = append(lines, catalog.StockLine{ISBN: it.ISBN, Quantity: it.Quantity})
	}

	// Gate 3: stock. Validation and deduction are one operation; the
	// catalog checks every line against live stock and deducts all of them
	// under one lock or transaction, so two
	// concurrent checkouts can never both take the last unit. Threshold
	// crossings fire the auto-replenish rule on the way out.
	if err := s.catalog.DecrementStock(ctx, lines); err != nil {
		return nil, err
	}

	if err := s.history.Append(ctx, order); err != nil {
		// Stock is already deducted; surface loudly rather than invent a
		// rollback the history contract does not offer.
		slog.Error("order append failed after stock deduction", "order_id", order.ID, "err", err)
		return nil, fmt.Errorf("record order: %w", err)
	}

	if _, err := s.carts.Clear(ctx, customerID); err != nil {
		slog.Error("cart clear failed after checkout", "customer_id", customerID, "err", err)
	}

	s.placed.Add(ctx, 1)
	if err := s.publisher.PublishEvent(ctx, events.TopicOrders, order.ID.String(), events.OrderPlaced{
		OrderID:     order.ID.String(),
		CustomerID:  customerID,
		TotalAmount: order.TotalAmount,
		TotalItems:  c.TotalItems,
	}); err != nil {
		slog.Error("publish order event", "order_id", order.ID, "err", err)
	}

	slog.Info("checkout completed",
		"order_id", order.ID, "customer_id", customerID, "total", order.TotalAmount, "lines", len(order.Lines))
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*CustomerOrder, error) {
	return s.history.Get(ctx, id)
}

func (s *service) ListOrders(ctx context.Context, customerID string) ([]CustomerOrder, error) {
	return s.history.ListByCustomer(ctx, customerID)
}
