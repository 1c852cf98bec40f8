package ledger

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"shopcore/internal/model"
)

// entry holds the stock accounting for one product. available+reserved is
// the total owned stock and must stay constant across reserve/release.
type entry struct {
	mu        sync.Mutex
	available int
	reserved  int
}

// MemoryLedger is an in-memory stock ledger. Reservations for a product are
// serialized on the product's own mutex, so concurrent reservations of the
// last unit resolve to exactly one winner.
type MemoryLedger struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	notifier Notifier
	logger   zerolog.Logger
}

// NewMemoryLedger creates an empty in-memory ledger. notifier may be nil.
func NewMemoryLedger(notifier Notifier, logger zerolog.Logger) *MemoryLedger {
	return &MemoryLedger{
		entries:  make(map[string]*entry),
		notifier: notifier,
		logger:   logger.With().Str("component", "stock-ledger").Logger(),
	}
}

func (l *MemoryLedger) entryFor(productID string) *entry {
	l.mu.RLock()
	e, ok := l.entries[productID]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[productID]; ok {
		return e
	}
	e = &entry{}
	l.entries[productID] = e
	return e
}

// lookup returns the entry for a product the ledger has seen. Only
// SetStock creates entries, matching the postgres ledger where the row
// must exist.
func (l *MemoryLedger) lookup(productID string) (*entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[productID]
	return e, ok
}

// Reserve decrements available stock by qty.
func (l *MemoryLedger) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	e, ok := l.lookup(productID)
	if !ok {
		return model.ErrProductNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if qty > e.available {
		l.logger.Debug().
			Str("product_id", productID).
			Int("requested", qty).
			Int("available", e.available).
			Msg("reservation rejected")
		return &model.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: e.available,
		}
	}

	e.available -= qty
	e.reserved += qty
	l.notify(productID, e.available)

	l.logger.Debug().
		Str("product_id", productID).
		Int("quantity", qty).
		Int("available", e.available).
		Msg("stock reserved")

	return nil
}

// Release returns qty previously reserved units to available stock.
func (l *MemoryLedger) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	e, ok := l.lookup(productID)
	if !ok {
		return model.ErrProductNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if qty > e.reserved {
		err := &model.LedgerInvariantError{
			ProductID: productID,
			Detail:    "release exceeds reserved quantity",
		}
		l.logger.Error().
			Str("product_id", productID).
			Int("release", qty).
			Int("reserved", e.reserved).
			Msg("ledger invariant violation")
		return err
	}

	e.available += qty
	e.reserved -= qty
	l.notify(productID, e.available)

	l.logger.Debug().
		Str("product_id", productID).
		Int("quantity", qty).
		Int("available", e.available).
		Msg("stock released")

	return nil
}

// Availability returns the number of units available for sale.
func (l *MemoryLedger) Availability(ctx context.Context, productID string) (int, error) {
	e, ok := l.lookup(productID)
	if !ok {
		return 0, model.ErrProductNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available, nil
}

// SetStock sets the available quantity for a product, creating the entry
// on first use. Outstanding reservations are preserved so that live
// orders can still release what they hold.
func (l *MemoryLedger) SetStock(ctx context.Context, productID string, qty int) error {
	if qty < 0 {
		return model.ErrInvalidQuantity
	}

	e := l.entryFor(productID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.available = qty
	l.notify(productID, e.available)

	l.logger.Info().
		Str("product_id", productID).
		Int("quantity", qty).
		Msg("stock level set")

	return nil
}

func (l *MemoryLedger) notify(productID string, available int) {
	if l.notifier != nil {
		l.notifier.StockChanged(productID, available)
	}
}
