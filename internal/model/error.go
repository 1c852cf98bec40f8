package model

import "fmt"

// Standard error codes surfaced by the commerce core.
const (
	ErrCodeInvalidVariant         = "INVALID_VARIANT"
	ErrCodeInsufficientStock      = "INSUFFICIENT_STOCK"
	ErrCodeInvalidTransition      = "INVALID_TRANSITION"
	ErrCodeConcurrentModification = "CONCURRENT_MODIFICATION"
	ErrCodeLedgerInvariant        = "LEDGER_INVARIANT_VIOLATION"
	ErrCodePaymentDeclined        = "PAYMENT_DECLINED"
	ErrCodeProductNotFound        = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound          = "ORDER_NOT_FOUND"
	ErrCodeCartLineNotFound       = "CART_LINE_NOT_FOUND"
	ErrCodeEmptyCart              = "EMPTY_CART"
	ErrCodeInvalidQuantity        = "INVALID_QUANTITY"
)

// DomainError is a business-rule failure with a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors that carry no extra data.
var (
	ErrConcurrentModification = NewDomainError(ErrCodeConcurrentModification, "Order was modified concurrently, retry against fresh state")
	ErrPaymentDeclined        = NewDomainError(ErrCodePaymentDeclined, "Payment was declined by the gateway")
	ErrProductNotFound        = NewDomainError(ErrCodeProductNotFound, "Product not found in catalogue")
	ErrOrderNotFound          = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrCartLineNotFound       = NewDomainError(ErrCodeCartLineNotFound, "Cart line not found")
	ErrEmptyCart              = NewDomainError(ErrCodeEmptyCart, "Cart is empty, nothing to checkout")
	ErrInvalidQuantity        = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
)

// InsufficientStockError reports a stock check or reservation failure,
// carrying the quantity that is still available.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// InvalidVariantError reports a size or color selection that is not in the
// product's allowed variant list.
type InvalidVariantError struct {
	ProductID string
	Field     string
	Value     string
}

func (e *InvalidVariantError) Error() string {
	return fmt.Sprintf("invalid %s %q for product %s", e.Field, e.Value, e.ProductID)
}

// InvalidTransitionError reports an order status transition outside the
// state machine.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition from %s to %s", e.From, e.To)
}

// LedgerInvariantError signals that a ledger operation would break the
// available+reserved==total invariant. It indicates a programming error or
// data corruption and must not be retried.
type LedgerInvariantError struct {
	ProductID string
	Detail    string
}

func (e *LedgerInvariantError) Error() string {
	return fmt.Sprintf("stock ledger invariant violated for product %s: %s", e.ProductID, e.Detail)
}
