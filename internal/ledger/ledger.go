// Package ledger tracks available stock per product and enforces
// reservation and release. It is the single source of truth for whether a
// quantity can be sold right now; cart-level stock checks are advisory,
// the ledger's reservation at order-creation time is authoritative.
package ledger

import "context"

// Ledger manages per-product stock reservations. Implementations must
// serialize reservations per product so that two concurrent reservations
// cannot both succeed when only one unit remains.
type Ledger interface {
	// Reserve decrements available stock by qty. Fails with
	// model.InsufficientStockError when fewer than qty units are available.
	Reserve(ctx context.Context, productID string, qty int) error

	// Release returns qty previously reserved units to available stock.
	// Releasing more than is currently reserved breaks the ledger
	// invariant and fails with model.LedgerInvariantError.
	Release(ctx context.Context, productID string, qty int) error

	// Availability returns the number of units available for sale. Fails
	// with model.ErrProductNotFound for a product the ledger has never
	// seen, as do Reserve and Release.
	Availability(ctx context.Context, productID string) (int, error)

	// SetStock sets the available quantity for a product, creating the
	// ledger entry if needed. Outstanding reservations are preserved so
	// that live orders can still release what they hold. Admin operation.
	SetStock(ctx context.Context, productID string, qty int) error
}

// Notifier receives stock-change notifications after every successful
// ledger mutation. The catalog snapshot uses this to keep its stock
// quantities current.
type Notifier interface {
	StockChanged(productID string, available int)
}
