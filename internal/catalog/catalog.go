// Package catalog provides the commerce core's read access to the product
// catalogue. The catalogue itself is owned by an external service; this
// package holds the snapshot the core validates carts and orders against.
package catalog

import (
	"context"

	"shopcore/internal/model"
)

// Store defines read access to the product snapshot.
type Store interface {
	// GetProduct retrieves a single product by ID. Returns (nil, nil) when
	// the product does not exist.
	GetProduct(ctx context.Context, id string) (*model.Product, error)

	// ListProducts retrieves products with pagination.
	ListProducts(ctx context.Context, limit, offset int) ([]model.Product, error)
}
