package cart

import (
	"context"
	"sync"

	"shopcore/internal/model"
)

// MemoryStore keeps carts in process memory. Each Save replaces the whole
// cart value, matching the single-writer-per-cart model.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string]model.Cart
}

// NewMemoryStore creates an empty in-memory cart store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts: make(map[string]model.Cart),
	}
}

// Get retrieves a user's cart. Returns (nil, nil) when absent.
func (s *MemoryStore) Get(ctx context.Context, userID string) (*model.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[userID]
	if !ok {
		return nil, nil
	}
	// Copy lines so callers cannot mutate stored state.
	out := c
	out.Lines = append([]model.CartLine(nil), c.Lines...)
	return &out, nil
}

// Save stores the cart, replacing any previous value.
func (s *MemoryStore) Save(ctx context.Context, userID string, cart *model.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *cart
	stored.Lines = append([]model.CartLine(nil), cart.Lines...)
	s.carts[userID] = stored
	return nil
}

// Delete removes the user's cart.
func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, userID)
	return nil
}
