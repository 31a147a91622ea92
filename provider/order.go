package provider

import (
	"context"
	"sync"
)

// MemoryOrderStore is an in-memory OrderStore. It backs tests and
// single-process deployments that persist orders elsewhere; production setups
// use the sqlite-backed store.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

// NewMemoryOrderStore creates an empty in-memory order store.
func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]*Order)}
}

// Put seeds an order into the store.
func (s *MemoryOrderStore) Put(ctx context.Context, order *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
	return nil
}

// Get returns the order with the given id, or ErrOrderNotFound.
func (s *MemoryOrderStore) Get(ctx context.Context, orderID string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Save stores the order's current state. The transition is already appended
// to the order's history by the state machine.
func (s *MemoryOrderStore) Save(ctx context.Context, order *Order, tr *Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
	return nil
}
