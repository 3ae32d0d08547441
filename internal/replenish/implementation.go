package replenish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bookery/internal/catalog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// service implements the Service interface.
type service struct {
	ledger     Ledger
	catalog    catalog.Service
	reorderQty int
	tracer     trace.Tracer
}

// NewService creates a new replenishment service instance. reorderQty is
// the fixed quantity placed by the auto-replenish rule.
func NewService(ledger Ledger, catalogSvc catalog.Service, reorderQty int) Service {
	return &service{
		ledger:     ledger,
		catalog:    catalogSvc,
		reorderQty: reorderQty,
		tracer:     otel.Tracer("bookery/replenish"),
	}
}

func (s *service) Place(ctx context.Context, isbn string, quantity int) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "replenish.place",
		trace.WithAttributes(attribute.String("book.isbn", isbn)))
	defer span.End()

	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1, got %d", quantity)
	}
	// The book must exist at creation time.
	if _, err := s.catalog.GetBook(ctx, isbn); err != nil {
		return nil, err
	}
	return s.insert(ctx, isbn, quantity)
}

// HandleLowStock places a pending order for the fixed reorder quantity.
// It receives the book straight from the crossing signal, so no catalog
// lookup happens here and the signal path cannot re-enter the store.
func (s *service) HandleLowStock(b catalog.Book) {
	o, err := s.insert(context.Background(), b.ISBN, s.reorderQty)
	if err != nil {
		slog.Error("auto replenishment failed", "isbn", b.ISBN, "err", err)
		return
	}
	slog.Info("auto replenishment placed",
		"isbn", b.ISBN, "order_id", o.ID, "quantity", o.Quantity, "stock", b.Stock, "threshold", b.Threshold)
}

func (s *service) insert(ctx context.Context, isbn string, quantity int) (*Order, error) {
	now := time.Now().UTC()
	o := &Order{
		ID:        uuid.New(),
		ISBN:      isbn,
		Quantity:  quantity,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.ledger.Insert(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) Confirm(ctx context.Context, id uuid.UUID) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "replenish.confirm",
		trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	// Claim the order first: the Pending->Confirmed transition is atomic
	// in the ledger, so a second confirm fails with ErrNotPending and the
	// stock addition below can only ever run once per order.
	o, err := s.ledger.Transition(ctx, id, StatusPending, StatusConfirmed)
	if err != nil {
		return nil, err
	}

	if _, err := s.catalog.AdjustStock(ctx, o.ISBN, o.Quantity); err != nil {
		// The book vanished between placement and confirmation. Release
		// the claim so the order is not stuck confirmed without effect.
		if _, revertErr := s.ledger.Transition(ctx, id, StatusConfirmed, StatusPending); revertErr != nil {
			slog.Error("failed to revert confirm claim", "order_id", id, "err", revertErr)
		}
		return nil, fmt.Errorf("confirm %s: %w", id, err)
	}

	slog.Info("replenishment confirmed", "order_id", id, "isbn", o.ISBN, "quantity", o.Quantity)
	return o, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.ledger.Transition(ctx, id, StatusPending, StatusCancelled)
	if err != nil {
		return nil, err
	}
	slog.Info("replenishment cancelled", "order_id", id, "isbn", o.ISBN)
	return o, nil
}

func (s *service) List(ctx context.Context) ([]Order, error) {
	return s.ledger.List(ctx)
}
