package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// History is the append-only customer order record. Orders are never
// updated or deleted once appended.
type History interface {
	Append(ctx context.Context, o *CustomerOrder) error
	Get(ctx context.Context, id uuid.UUID) (*CustomerOrder, error)
	ListByCustomer(ctx context.Context, customerID string) ([]CustomerOrder, error)
}

// MemoryHistory keeps orders in a mutex-guarded map plus a per-customer
// index preserving append order.
type MemoryHistory struct {
	mu         sync.RWMutex
	orders     map[uuid.UUID]CustomerOrder
	byCustomer map[string][]uuid.UUID
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{
		orders:     make(map[uuid.UUID]CustomerOrder),
		byCustomer: make(map[string][]uuid.UUID),
	}
}

var _ History = (*MemoryHistory)(nil)

func (m *MemoryHistory) Append(ctx context.Context, o *CustomerOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return fmt.Errorf("duplicate order id %s", o.ID)
	}
	m.orders[o.ID] = *o
	m.byCustomer[o.CustomerID] = append(m.byCustomer[o.CustomerID], o.ID)
	return nil
}

func (m *MemoryHistory) Get(ctx context.Context, id uuid.UUID) (*CustomerOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	cp := o
	return &cp, nil
}

func (m *MemoryHistory) ListByCustomer(ctx context.Context, customerID string) ([]CustomerOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byCustomer[customerID]
	out := make([]CustomerOrder, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.orders[id])
	}
	return out, nil
}
