package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"bookery/internal/events"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// service implements the Service interface.
type service struct {
	store     Store
	publisher events.Publisher
	tracer    trace.Tracer
	lowStock  metric.Int64Counter
}

// NewService creates a new catalog service instance. It hooks the store's
// low-stock signal so every crossing is published to the event stream
// before fanning out to callbacks registered through OnLowStock.
func NewService(store Store, publisher events.Publisher) Service {
	s := &service{
		store:     store,
		publisher: publisher,
		tracer:    otel.Tracer("bookery/catalog"),
	}
	meter := otel.Meter("bookery/catalog")
	s.lowStock, _ = meter.Int64Counter("catalog.low_stock_crossings")

	store.OnLowStock(func(b Book) {
		s.lowStock.Add(context.Background(), 1, metric.WithAttributes(attribute.String("isbn", b.ISBN)))
		err := s.publisher.PublishEvent(context.Background(), events.TopicStock, b.ISBN, events.BookLowStock{
			ISBN:      b.ISBN,
			Title:     b.Title,
			Stock:     b.Stock,
			Threshold: b.Threshold,
		})
		if err != nil {
			slog.Error("publish low stock event", "isbn", b.ISBN, "err", err)
		}
	})
	return s
}

func (s *service) CreateBook(ctx context.Context, b Book) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.create",
		trace.WithAttributes(attribute.String("book.isbn", b.ISBN)))
	defer span.End()

	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, &b); err != nil {
		return nil, err
	}
	slog.Info("book created", "isbn", b.ISBN, "title", b.Title, "stock", b.Stock)
	return &b, nil
}

func (s *service) GetBook(ctx context.Context, isbn string) (*Book, error) {
	return s.store.Get(ctx, isbn)
}

func (s *service) ListBooks(ctx context.Context) ([]Book, error) {
	return s.store.List(ctx)
}

func (s *service) UpdateFields(ctx context.Context, isbn string, patch FieldPatch) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.update_fields",
		trace.WithAttributes(attribute.String("book.isbn", isbn)))
	defer span.End()

	if patch.Price != nil && *patch.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidBook)
	}
	if patch.Threshold != nil && *patch.Threshold < 0 {
		return nil, fmt.Errorf("%w: threshold must not be negative", ErrInvalidBook)
	}
	if patch.Category != nil && !patch.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidBook, *patch.Category)
	}
	return s.store.SetFields(ctx, isbn, patch)
}

func (s *service) AdjustStock(ctx context.Context, isbn string, delta int) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.adjust_stock",
		trace.WithAttributes(
			attribute.String("book.isbn", isbn),
			attribute.Int("stock.delta", delta),
		))
	defer span.End()

	b, err := s.store.AdjustStock(ctx, isbn, delta)
	if err != nil {
		return nil, err
	}
	slog.Info("stock adjusted", "isbn", isbn, "delta", delta, "stock", b.Stock)
	return b, nil
}

func (s *service) DecrementStock(ctx context.Context, lines []StockLine) error {
	ctx, span := s.tracer.Start(ctx, "catalog.decrement_batch",
		trace.WithAttributes(attribute.Int("lines", len(lines))))
	defer span.End()

	return s.store.DecrementBatch(ctx, lines)
}

func (s *service) RemoveBook(ctx context.Context, isbn string) error {
	return s.store.Delete(ctx, isbn)
}

func (s *service) OnLowStock(fn LowStockFunc) {
	s.store.OnLowStock(fn)
}
