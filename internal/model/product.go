package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalogue product as seen by the commerce core.
// Products are owned by the catalog and treated as read-mostly; only the
// stock ledger mutates StockQuantity.
type Product struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Price         decimal.Decimal `json:"price" db:"price"`
	Category      string          `json:"category" db:"category"`
	StockQuantity int             `json:"stockQuantity" db:"stock"`
	Sizes         []string        `json:"sizes,omitempty" db:"sizes"`
	Colors        []string        `json:"colors,omitempty" db:"colors"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// InStock reports whether the product has any available stock.
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}

// AllowsSize reports whether the given size selection is valid for this
// product. An empty selection is always valid; a non-empty selection must
// be a member of the product's size list.
func (p *Product) AllowsSize(size string) bool {
	return variantAllowed(p.Sizes, size)
}

// AllowsColor reports whether the given color selection is valid for this
// product.
func (p *Product) AllowsColor(color string) bool {
	return variantAllowed(p.Colors, color)
}

func variantAllowed(allowed []string, selected string) bool {
	if selected == "" {
		return true
	}
	for _, v := range allowed {
		if v == selected {
			return true
		}
	}
	return false
}
