package cart

import (
	"context"
	"sync"
)

// Store keeps one cart per customer. A customer with no cart reads as an
// empty cart, never as an error. Update runs the mutation under whatever
// serialization the implementation provides for that customer.
type Store interface {
	Get(ctx context.Context, customerID string) (*Cart, error)
	Update(ctx context.Context, customerID string, mutate func(*Cart) error) (*Cart, error)
}

// MemoryStore keeps carts in a mutex-guarded map. The single lock
// serializes edits to any one cart; edits to different customers contend
// only briefly on the map.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]*Cart)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Get(ctx context.Context, customerID string) (*Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.carts[customerID]
	if !ok {
		return NewCart(customerID), nil
	}
	return c.copy(), nil
}

func (m *MemoryStore) Update(ctx context.Context, customerID string, mutate func(*Cart) error) (*Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[customerID]
	if !ok {
		c = NewCart(customerID)
	}
	// Mutate a copy so a failed mutation leaves the stored cart untouched.
	work := c.copy()
	if err := mutate(work); err != nil {
		return nil, err
	}
	work.Recompute()
	m.carts[customerID] = work
	return work.copy(), nil
}

func (c *Cart) copy() *Cart {
	cp := *c
	cp.Items = make([]Item, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}
