package replenish

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ledger owns the replenishment order records. List returns orders in
// creation order, so order ids carry recency implicitly.
type Ledger interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	// Transition moves the order from one status to another atomically.
	// A mismatch on `from` fails with ErrNotPending when from is
	// StatusPending, so a terminal order can never transition again.
	Transition(ctx context.Context, id uuid.UUID, from, to Status) (*Order, error)
	List(ctx context.Context) ([]Order, error)
}

// MemoryLedger keeps orders in a mutex-guarded map plus an insertion-order
// index.
type MemoryLedger struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]Order
	seq    []uuid.UUID
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{orders: make(map[uuid.UUID]Order)}
}

var _ Ledger = (*MemoryLedger)(nil)

func (m *MemoryLedger) Insert(ctx context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return fmt.Errorf("duplicate replenishment order id %s", o.ID)
	}
	m.orders[o.ID] = *o
	m.seq = append(m.seq, o.ID)
	return nil
}

func (m *MemoryLedger) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := o
	return &cp, nil
}

func (m *MemoryLedger) Transition(ctx context.Context, id uuid.UUID, from, to Status) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if o.Status != from {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotPending, id, o.Status)
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	m.orders[id] = o
	cp := o
	return &cp, nil
}

func (m *MemoryLedger) List(ctx context.Context) ([]Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Order, 0, len(m.seq))
	for _, id := range m.seq {
		out = append(out, m.orders[id])
	}
	return out, nil
}
