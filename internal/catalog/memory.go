package catalog

import (
	"context"
	"sort"
	"sync"

	"shopcore/internal/model"
)

// MemoryStore is an in-memory product snapshot. It doubles as the stock
// ledger's notification target so the snapshot's stock quantities track the
// ledger's view of availability.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]model.Product
}

// NewMemoryStore creates an empty in-memory catalogue.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]model.Product),
	}
}

// Put inserts or replaces a product in the snapshot.
func (s *MemoryStore) Put(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// GetProduct retrieves a single product by ID. Returns (nil, nil) when the
// product does not exist.
func (s *MemoryStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ListProducts retrieves products with pagination, ordered by name.
func (s *MemoryStore) ListProducts(ctx context.Context, limit, offset int) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	if offset >= len(all) {
		return []model.Product{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// StockChanged updates the snapshot's stock quantity for a product. It is
// called by the stock ledger after every reserve/release.
func (s *MemoryStore) StockChanged(productID string, available int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return
	}
	p.StockQuantity = available
	s.products[productID] = p
}
