// Package order implements the order lifecycle: atomic creation from a
// cart and the status state machine, with optimistic concurrency on
// transitions.
package order

import (
	"context"

	"github.com/google/uuid"

	"shopcore/internal/model"
)

// CreateRequest describes a checkout attempt.
type CreateRequest struct {
	ShippingAddress string `json:"shippingAddress"`
	PaymentMethod   string `json:"paymentMethod"`
	Jurisdiction    string `json:"jurisdiction,omitempty"`
}

// Lifecycle defines the order operations exposed to collaborators.
type Lifecycle interface {
	// Create materialises an order from the user's cart. The operation is
	// atomic: either stock is reserved for every line, payment is
	// authorized, the order is persisted and the cart cleared, or nothing
	// changes.
	Create(ctx context.Context, userID string, req CreateRequest) (*model.Order, error)

	// Get retrieves an order. Returns (nil, nil) when absent.
	Get(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByUser retrieves a user's orders, newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error)

	// Transition moves an order to the next status per the state machine,
	// restocking reserved units when the order enters Cancelled or
	// Refunded. Version conflicts are retried a bounded number of times
	// before surfacing model.ErrConcurrentModification.
	Transition(ctx context.Context, id uuid.UUID, next model.OrderStatus) (*model.Order, error)

	// SetTracking records the carrier tracking number on an order.
	SetTracking(ctx context.Context, id uuid.UUID, tracking string) (*model.Order, error)
}

// Store persists orders. Orders are immutable apart from status, tracking
// number and version.
type Store interface {
	// Create persists a new order with its items.
	Create(ctx context.Context, o *model.Order) error

	// Get retrieves an order with its items. Returns (nil, nil) when
	// absent.
	Get(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByUser retrieves a user's orders, newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error)

	// UpdateStatus applies a status change if and only if the stored
	// version equals expectedVersion, incrementing the version. Fails with
	// model.ErrConcurrentModification on a version mismatch.
	UpdateStatus(ctx context.Context, id uuid.UUID, next model.OrderStatus, expectedVersion int64) error

	// SetTracking records the tracking number.
	SetTracking(ctx context.Context, id uuid.UUID, tracking string) error
}
