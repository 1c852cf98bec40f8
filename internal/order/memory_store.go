package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/model"
)

// MemoryStore keeps orders in process memory with version-checked status
// updates.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]model.Order
}

// NewMemoryStore creates an empty in-memory order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[uuid.UUID]model.Order),
	}
}

// Create persists a new order.
func (s *MemoryStore) Create(ctx context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.ID] = copyOrder(*o)
	return nil
}

// Get retrieves an order. Returns (nil, nil) when absent.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	out := copyOrder(o)
	return &out, nil
}

// ListByUser retrieves a user's orders, newest first.
func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []model.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			orders = append(orders, copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })

	if offset >= len(orders) {
		return []model.Order{}, nil
	}
	end := offset + limit
	if end > len(orders) {
		end = len(orders)
	}
	return orders[offset:end], nil
}

// UpdateStatus applies a status change under an optimistic version check.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, next model.OrderStatus, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return model.ErrOrderNotFound
	}
	if o.Version != expectedVersion {
		return model.ErrConcurrentModification
	}

	o.Status = next
	o.Version++
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return nil
}

// SetTracking records the tracking number.
func (s *MemoryStore) SetTracking(ctx context.Context, id uuid.UUID, tracking string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return model.ErrOrderNotFound
	}

	o.TrackingNumber = &tracking
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return nil
}

func copyOrder(o model.Order) model.Order {
	out := o
	out.Items = append([]model.OrderItem(nil), o.Items...)
	if o.TrackingNumber != nil {
		t := *o.TrackingNumber
		out.TrackingNumber = &t
	}
	return out
}
