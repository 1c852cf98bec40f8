package order

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcore/internal/cart"
	"shopcore/internal/catalog"
	"shopcore/internal/events"
	"shopcore/internal/ledger"
	"shopcore/internal/model"
	"shopcore/internal/payment"
	"shopcore/internal/policy"
	"shopcore/internal/pricing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	svc      *Service
	carts    *cart.Manager
	cat      *catalog.MemoryStore
	stock    *ledger.MemoryLedger
	store    Store
	policies policy.Static
}

// newFixture wires the full in-memory core: catalogue, ledger (notifying
// the catalogue), cart manager, mock gateway.
func newFixture(t *testing.T, store Store, declinedMethods ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	cat := catalog.NewMemoryStore()
	cat.Put(model.Product{
		ID:            "P001",
		Name:          "Hoodie",
		Price:         dec("100.00"),
		Category:      "apparel",
		StockQuantity: 5,
		Sizes:         []string{"S", "M", "L"},
	})
	cat.Put(model.Product{
		ID:            "P002",
		Name:          "Mug",
		Price:         dec("12.50"),
		Category:      "homeware",
		StockQuantity: 100,
	})

	stock := ledger.NewMemoryLedger(cat, zerolog.Nop())
	require.NoError(t, stock.SetStock(ctx, "P001", 5))
	require.NoError(t, stock.SetStock(ctx, "P002", 100))

	policies := policy.Static{Fixed: pricing.Policy{
		FreeShippingThreshold: dec("500"),
		FlatShippingFee:       dec("99.99"),
		TaxRate:               dec("0.15"),
	}}

	carts := cart.NewManager(cart.NewMemoryStore(), cat, policies, zerolog.Nop())

	if store == nil {
		store = NewMemoryStore()
	}

	svc := NewService(
		store, carts, cat, stock,
		payment.NewMockGateway(declinedMethods...),
		policies, events.NopPublisher{}, zerolog.Nop(),
	)

	return &fixture{svc: svc, carts: carts, cat: cat, stock: stock, store: store, policies: policies}
}

func (f *fixture) addToCart(t *testing.T, userID, productID string, qty int, size string) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), userID, cart.AddItemRequest{
		ProductID: productID,
		Quantity:  qty,
		Size:      size,
	})
	require.NoError(t, err)
}

func (f *fixture) available(t *testing.T, productID string) int {
	t.Helper()
	n, err := f.stock.Availability(context.Background(), productID)
	require.NoError(t, err)
	return n
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.addToCart(t, "user-1", "P001", 2, "M")

	o, err := f.svc.Create(ctx, "user-1", CreateRequest{
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card-1",
	})

	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, o.Status)
	assert.Equal(t, int64(1), o.Version)
	assert.NotEmpty(t, o.PaymentRef)
	require.Len(t, o.Items, 1)
	assert.True(t, o.Items[0].UnitPrice.Equal(dec("100.00")))
	assert.True(t, o.Pricing.Total.Equal(dec("329.99")), "total %s", o.Pricing.Total)

	// Stock is reserved and the cart is cleared.
	assert.Equal(t, 3, f.available(t, "P001"))
	view, err := f.carts.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, view.Cart.Lines)

	// The order is retrievable.
	stored, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, o.ID, stored.ID)
}

func TestService_Create_EmptyCart(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Create(context.Background(), "user-1", CreateRequest{PaymentMethod: "card-1"})

	assert.ErrorIs(t, err, model.ErrEmptyCart)
}

func TestService_Create_FreezesUnitPrices(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.addToCart(t, "user-1", "P002", 1, "")

	o, err := f.svc.Create(ctx, "user-1", CreateRequest{PaymentMethod: "card-1"})
	require.NoError(t, err)

	// A later catalogue price change must not leak into the order.
	f.cat.Put(model.Product{ID: "P002", Name: "Mug", Price: dec("99.99"), StockQuantity: 99})

	stored, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, stored.Items[0].UnitPrice.Equal(dec("12.50")))
	assert.True(t, stored.Pricing.Subtotal.Equal(dec("12.50")))
}

func TestService_Create_InsufficientStockRollsBackAllReservations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	// P002 is reserved before P001 fails; the whole operation must leave
	// no trace.
	f.addToCart(t, "user-1", "P002", 2, "")
	f.addToCart(t, "user-1", "P001", 2, "M")

	require.NoError(t, f.stock.SetStock(ctx, "P001", 1))

	_, err := f.svc.Create(ctx, "user-1", CreateRequest{PaymentMethod: "card-1"})

	var stockErr *model.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "P001", stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)

	assert.Equal(t, 100, f.available(t, "P002"), "partial reservation must be rolled back")
	assert.Equal(t, 1, f.available(t, "P001"))

	// The cart survives a failed checkout.
	view, err := f.carts.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, view.Cart.Lines, 2)
}

func TestService_Create_PaymentDeclinedRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, "bad-card")
	f.addToCart(t, "user-1", "P001", 2, "M")

	_, err := f.svc.Create(ctx, "user-1", CreateRequest{PaymentMethod: "bad-card"})

	assert.ErrorIs(t, err, model.ErrPaymentDeclined)
	assert.Equal(t, 5, f.available(t, "P001"), "declined payment must release reservations")

	view, err := f.carts.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, view.Cart.Lines, 1)
}

// cancellingGateway simulates the caller's deadline firing while the
// charge is in flight: it kills the request context and reports the
// context error.
type cancellingGateway struct {
	cancel context.CancelFunc
}

func (g *cancellingGateway) Authorize(ctx context.Context, methodRef string, breakdown model.PriceBreakdown) (*payment.Authorization, error) {
	g.cancel()
	return nil, ctx.Err()
}

func TestService_Create_CancelledMidCreateRollsBack(t *testing.T) {
	f := newFixture(t, nil)

	// Both products are reserved before the gateway is reached.
	f.addToCart(t, "user-1", "P002", 2, "")
	f.addToCart(t, "user-1", "P001", 2, "M")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewService(
		f.store, f.carts, f.cat, f.stock,
		&cancellingGateway{cancel: cancel},
		f.policies, events.NopPublisher{}, zerolog.Nop(),
	)

	_, err := svc.Create(ctx, "user-1", CreateRequest{PaymentMethod: "card-1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// Every reservation must be released even though the request context
	// is already dead.
	assert.Equal(t, 5, f.available(t, "P001"))
	assert.Equal(t, 100, f.available(t, "P002"))

	// No order was persisted.
	orders, err := svc.ListByUser(context.Background(), "user-1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func createTestOrder(t *testing.T, f *fixture) *model.Order {
	t.Helper()
	f.addToCart(t, "user-1", "P001", 2, "M")
	o, err := f.svc.Create(context.Background(), "user-1", CreateRequest{PaymentMethod: "card-1"})
	require.NoError(t, err)
	return o
}

func TestService_Transition_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	o := createTestOrder(t, f)

	for _, next := range []model.OrderStatus{
		model.StatusProcessing,
		model.StatusShipped,
		model.StatusDelivered,
	} {
		updated, err := f.svc.Transition(ctx, o.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	// None of the happy-path transitions touch stock.
	assert.Equal(t, 3, f.available(t, "P001"))
}

func TestService_Transition_ReturnsStoredState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	o := createTestOrder(t, f)

	updated, err := f.svc.Transition(ctx, o.ID, model.StatusProcessing)
	require.NoError(t, err)

	stored, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	// The returned order must match the row as persisted, not a locally
	// mutated copy.
	assert.Equal(t, stored.Status, updated.Status)
	assert.Equal(t, stored.Version, updated.Version)
	assert.True(t, updated.UpdatedAt.Equal(stored.UpdatedAt),
		"returned updated-at %s differs from stored %s", updated.UpdatedAt, stored.UpdatedAt)
}

func TestService_Transition_InvalidLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	o := createTestOrder(t, f)

	_, err := f.svc.Transition(ctx, o.ID, model.StatusProcessing)
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, o.ID, model.StatusShipped)
	require.NoError(t, err)

	// Shipped only permits Delivered or Refunded.
	_, err = f.svc.Transition(ctx, o.ID, model.StatusCancelled)

	var transErr *model.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, model.StatusShipped, transErr.From)
	assert.Equal(t, model.StatusCancelled, transErr.To)

	stored, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusShipped, stored.Status)
	assert.Equal(t, 3, f.available(t, "P001"), "rejected transition must not touch stock")
}

func TestService_Transition_CancelRestocks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	o := createTestOrder(t, f)
	require.Equal(t, 3, f.available(t, "P001"))

	updated, err := f.svc.Transition(ctx, o.ID, model.StatusCancelled)

	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, updated.Status)
	assert.Equal(t, 5, f.available(t, "P001"), "cancel must restore reserved stock")
}

func TestService_Transition_RefundAfterDeliveryRestocks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	o := createTestOrder(t, f)

	for _, next := range []model.OrderStatus{
		model.StatusProcessing, model.StatusShipped, model.StatusDelivered,
	} {
		_, err := f.svc.Transition(ctx, o.ID, next)
		require.NoError(t, err)
	}

	_, err := f.svc.Transition(ctx, o.ID, model.StatusRefunded)

	require.NoError(t, err)
	assert.Equal(t, 5, f.available(t, "P001"))
}

func TestService_Transition_TerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	o := createTestOrder(t, f)

	_, err := f.svc.Transition(ctx, o.ID, model.StatusCancelled)
	require.NoError(t, err)

	for _, next := range []model.OrderStatus{
		model.StatusPending, model.StatusProcessing, model.StatusShipped,
		model.StatusDelivered, model.StatusRefunded,
	} {
		_, err := f.svc.Transition(ctx, o.ID, next)
		var transErr *model.InvalidTransitionError
		assert.ErrorAs(t, err, &transErr, "cancelled order must reject %s", next)
	}

	// The restock from the original cancellation happened exactly once.
	assert.Equal(t, 5, f.available(t, "P001"))
}

func TestService_Transition_UnknownOrder(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Transition(context.Background(), uuid.New(), model.StatusProcessing)

	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

// conflictingStore fails UpdateStatus with ErrConcurrentModification a
// fixed number of times before delegating.
type conflictingStore struct {
	Store
	remaining int
}

func (s *conflictingStore) UpdateStatus(ctx context.Context, id uuid.UUID, next model.OrderStatus, expectedVersion int64) error {
	if s.remaining > 0 {
		s.remaining--
		return model.ErrConcurrentModification
	}
	return s.Store.UpdateStatus(ctx, id, next, expectedVersion)
}

func TestService_Transition_RetriesVersionConflicts(t *testing.T) {
	ctx := context.Background()
	store := &conflictingStore{Store: NewMemoryStore(), remaining: 2}
	f := newFixture(t, store)
	o := createTestOrder(t, f)

	updated, err := f.svc.Transition(ctx, o.ID, model.StatusProcessing)

	require.NoError(t, err, "two conflicts fit within the retry budget")
	assert.Equal(t, model.StatusProcessing, updated.Status)
}

func TestService_Transition_SurfacesPersistentConflicts(t *testing.T) {
	ctx := context.Background()
	store := &conflictingStore{Store: NewMemoryStore(), remaining: maxTransitionRetries}
	f := newFixture(t, store)
	o := createTestOrder(t, f)

	_, err := f.svc.Transition(ctx, o.ID, model.StatusProcessing)

	assert.ErrorIs(t, err, model.ErrConcurrentModification)
}

func TestService_SetTracking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	o := createTestOrder(t, f)

	updated, err := f.svc.SetTracking(ctx, o.ID, "TRACK-123")

	require.NoError(t, err)
	require.NotNil(t, updated.TrackingNumber)
	assert.Equal(t, "TRACK-123", *updated.TrackingNumber)
}

func TestService_ListByUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	f.addToCart(t, "user-1", "P002", 1, "")
	_, err := f.svc.Create(ctx, "user-1", CreateRequest{PaymentMethod: "card-1"})
	require.NoError(t, err)

	f.addToCart(t, "user-1", "P002", 2, "")
	_, err = f.svc.Create(ctx, "user-1", CreateRequest{PaymentMethod: "card-1"})
	require.NoError(t, err)

	orders, err := f.svc.ListByUser(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	other, err := f.svc.ListByUser(ctx, "someone-else", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}
