package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is an immutable snapshot of a cart line at purchase time.
// UnitPrice is the price the customer was charged; later catalogue price
// changes do not affect it.
type OrderItem struct {
	ProductID string          `json:"productId" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	Size      string          `json:"size,omitempty" db:"size"`
	Color     string          `json:"color,omitempty" db:"color"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Quantity  int             `json:"quantity" db:"quantity"`
}

// Order is a customer order. Orders are created once and never deleted;
// only Status, TrackingNumber and Version mutate, and Status only through
// the state machine in status.go. Version backs optimistic concurrency on
// status transitions.
type Order struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	UserID          string         `json:"userId" db:"user_id"`
	Items           []OrderItem    `json:"items"`
	Pricing         PriceBreakdown `json:"pricing"`
	Status          OrderStatus    `json:"status" db:"status"`
	ShippingAddress string         `json:"shippingAddress" db:"shipping_address"`
	PaymentRef      string         `json:"paymentRef" db:"payment_ref"`
	TrackingNumber  *string        `json:"trackingNumber,omitempty" db:"tracking_number"`
	Version         int64          `json:"version" db:"version"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time      `json:"updatedAt" db:"updated_at"`
}
