package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is a single entry in a cart. Lines are identified by the
// (product, size, color) tuple; at most one line per tuple exists in a cart.
type CartLine struct {
	ProductID string `json:"productId"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Quantity  int    `json:"quantity"`
}

// Key returns the identity key of the line within its cart.
func (l CartLine) Key() string {
	return strings.Join([]string{l.ProductID, l.Size, l.Color}, "|")
}

// Cart is the ordered collection of lines selected by a single user.
type Cart struct {
	UserID    string     `json:"userId"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// FindLine returns the index of the line with the given key, or -1.
func (c *Cart) FindLine(key string) int {
	for i, l := range c.Lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

// QuantityOf returns the total quantity of a product across all lines,
// regardless of size/color selection.
func (c *Cart) QuantityOf(productID string) int {
	total := 0
	for _, l := range c.Lines {
		if l.ProductID == productID {
			total += l.Quantity
		}
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// PriceBreakdown is the derived price of a cart or order. It is recomputed
// on every cart mutation and frozen only when an order is created.
type PriceBreakdown struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shippingFee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}
