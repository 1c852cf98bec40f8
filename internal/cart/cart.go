// Package cart owns the mutable collection of items a user has selected.
// Every mutating operation re-validates against the catalogue at call time,
// so a cart touched before a stock change cannot silently exceed stock.
package cart

import (
	"context"

	"shopcore/internal/model"
)

// View is a cart together with its freshly computed price breakdown.
type View struct {
	Cart    model.Cart           `json:"cart"`
	Pricing model.PriceBreakdown `json:"pricing"`
}

// AddItemRequest describes an item to add to a cart.
type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Service defines cart operations for a single user's cart.
type Service interface {
	// AddItem validates and adds an item, merging into an existing line
	// with the same (product, size, color) identity.
	AddItem(ctx context.Context, userID string, req AddItemRequest) (*View, error)

	// UpdateQuantity changes a line's quantity. A quantity of zero or less
	// removes the line.
	UpdateQuantity(ctx context.Context, userID, lineKey string, quantity int) (*View, error)

	// RemoveItem removes a line. Removing an absent line is not an error.
	RemoveItem(ctx context.Context, userID, lineKey string) (*View, error)

	// Get returns the cart and its current pricing.
	Get(ctx context.Context, userID string) (*View, error)

	// Clear empties the cart. Used after successful order creation.
	Clear(ctx context.Context, userID string) error
}

// Store persists carts keyed by user ID.
type Store interface {
	// Get retrieves a user's cart. Returns (nil, nil) when the user has no
	// cart yet.
	Get(ctx context.Context, userID string) (*model.Cart, error)

	// Save stores the cart as the user's current cart, replacing any
	// previous value.
	Save(ctx context.Context, userID string, cart *model.Cart) error

	// Delete removes the user's cart.
	Delete(ctx context.Context, userID string) error
}
