package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store owns the authoritative book records. Implementations must enforce
// the non-negative-stock invariant inside AdjustStock/DecrementBatch and
// invoke the registered low-stock callback exactly once per downward
// threshold crossing, after their own lock or transaction is released.
type Store interface {
	Get(ctx context.Context, isbn string) (*Book, error)
	List(ctx context.Context) ([]Book, error)
	Create(ctx context.Context, b *Book) error
	SetFields(ctx context.Context, isbn string, patch FieldPatch) (*Book, error)
	AdjustStock(ctx context.Context, isbn string, delta int) (*Book, error)
	// DecrementBatch deducts every line or none. Lines are validated in
	// order; the first insufficient line aborts the whole batch with
	// InsufficientStockError.
	DecrementBatch(ctx context.Context, lines []StockLine) error
	Delete(ctx context.Context, isbn string) error
	OnLowStock(fn LowStockFunc)
}

// MemoryStore keeps books in a mutex-guarded map. A single write lock
// serializes every mutation, so a multi-line DecrementBatch is atomic and
// two concurrent checkouts can never both pass the sufficiency check.
type MemoryStore struct {
	mu       sync.RWMutex
	books    map[string]Book
	lowStock []LowStockFunc
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{books: make(map[string]Book)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) OnLowStock(fn LowStockFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lowStock = append(m.lowStock, fn)
}

func (m *MemoryStore) Get(ctx context.Context, isbn string) (*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[isbn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, isbn)
	}
	cp := b
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Book, 0, len(m.books))
	for _, b := range m.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ISBN < out[j].ISBN })
	return out, nil
}

func (m *MemoryStore) Create(ctx context.Context, b *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[b.ISBN]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, b.ISBN)
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	m.books[b.ISBN] = *b
	return nil
}

func (m *MemoryStore) SetFields(ctx context.Context, isbn string, patch FieldPatch) (*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[isbn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, isbn)
	}
	if patch.Title != nil {
		b.Title = *patch.Title
	}
	if patch.Authors != nil {
		b.Authors = patch.Authors
	}
	if patch.Publisher != nil {
		b.Publisher = *patch.Publisher
	}
	if patch.Price != nil {
		b.Price = *patch.Price
	}
	if patch.Category != nil {
		b.Category = *patch.Category
	}
	if patch.Threshold != nil {
		b.Threshold = *patch.Threshold
	}
	b.UpdatedAt = time.Now().UTC()
	m.books[isbn] = b
	cp := b
	return &cp, nil
}

func (m *MemoryStore) AdjustStock(ctx context.Context, isbn string, delta int) (*Book, error) {
	m.mu.Lock()
	b, ok := m.books[isbn]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, isbn)
	}
	next := b.Stock + delta
	if next < 0 {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s has %d, delta %d", ErrInvalidStock, isbn, b.Stock, delta)
	}
	crossed := b.Stock >= b.Threshold && next < b.Threshold
	b.Stock = next
	b.UpdatedAt = time.Now().UTC()
	m.books[isbn] = b
	fns := m.lowStock
	m.mu.Unlock()

	if crossed {
		for _, fn := range fns {
			fn(b)
		}
	}
	cp := b
	return &cp, nil
}

func (m *MemoryStore) DecrementBatch(ctx context.Context, lines []StockLine) error {
	m.mu.Lock()

	// Validate against a scratch copy first so the batch applies all or
	// nothing, and repeated isbns in one batch are checked cumulatively.
	pending := make(map[string]int, len(lines))
	var order []string
	for _, ln := range lines {
		b, ok := m.books[ln.ISBN]
		if !ok {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrNotFound, ln.ISBN)
		}
		next, seen := pending[ln.ISBN]
		if !seen {
			next = b.Stock
			order = append(order, ln.ISBN)
		}
		if next < ln.Quantity {
			m.mu.Unlock()
			return &InsufficientStockError{ISBN: ln.ISBN, Available: next}
		}
		pending[ln.ISBN] = next - ln.Quantity
	}

	now := time.Now().UTC()
	var crossed []Book
	for _, isbn := range order {
		next := pending[isbn]
		b := m.books[isbn]
		crossing := b.Stock >= b.Threshold && next < b.Threshold
		b.Stock = next
		b.UpdatedAt = now
		m.books[isbn] = b
		if crossing {
			crossed = append(crossed, b)
		}
	}
	fns := m.lowStock
	m.mu.Unlock()

	for _, b := range crossed {
		for _, fn := range fns {
			fn(b)
		}
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, isbn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[isbn]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, isbn)
	}
	delete(m.books, isbn)
	return nil
}
