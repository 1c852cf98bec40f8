package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shopcore/internal/cart"
	"shopcore/internal/catalog"
	"shopcore/internal/events"
	"shopcore/internal/ledger"
	"shopcore/internal/model"
	"shopcore/internal/payment"
	"shopcore/internal/policy"
	"shopcore/internal/pricing"
)

// maxTransitionRetries bounds the transparent retry of version-conflicted
// transitions before ErrConcurrentModification surfaces to the caller.
const maxTransitionRetries = 3

const eventProducer = "commerce-core"

// Service implements Lifecycle.
type Service struct {
	store     Store
	carts     cart.Service
	catalog   catalog.Store
	ledger    ledger.Ledger
	gateway   payment.Gateway
	policies  policy.Source
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewService creates a new order lifecycle service.
func NewService(
	store Store,
	carts cart.Service,
	cat catalog.Store,
	stock ledger.Ledger,
	gateway payment.Gateway,
	policies policy.Source,
	publisher events.Publisher,
	logger zerolog.Logger,
) *Service {
	return &Service{
		store:     store,
		carts:     carts,
		catalog:   cat,
		ledger:    stock,
		gateway:   gateway,
		policies:  policies,
		publisher: publisher,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// Create materialises an order from the user's cart. Stock is reserved per
// line through the ledger; any failure after partial reservation releases
// everything already taken, so the operation has no partial effect.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*model.Order, error) {
	view, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if view.Cart.IsEmpty() {
		return nil, model.ErrEmptyCart
	}

	items, err := s.reserveAll(ctx, view.Cart.Lines)
	if err != nil {
		return nil, err
	}

	// Unit prices are frozen into the items above; the breakdown computed
	// here is the one the customer is charged, whatever the catalogue does
	// later.
	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	}
	breakdown := pricing.Compute(lines, s.policies.Policy(req.Jurisdiction))

	auth, err := s.gateway.Authorize(ctx, req.PaymentMethod, breakdown)
	if err != nil {
		s.releaseAll(ctx, items)
		return nil, fmt.Errorf("payment authorization failed: %w", err)
	}
	if !auth.Authorized {
		s.releaseAll(ctx, items)
		s.logger.Warn().
			Str("user_id", userID).
			Str("payment_method", req.PaymentMethod).
			Msg("payment declined")
		return nil, model.ErrPaymentDeclined
	}

	now := time.Now()
	o := &model.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           items,
		Pricing:         breakdown,
		Status:          model.StatusPending,
		ShippingAddress: req.ShippingAddress,
		PaymentRef:      auth.Reference,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.Create(ctx, o); err != nil {
		s.releaseAll(ctx, items)
		s.logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("failed to persist order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// A failed clear leaves a stale cart behind, which is safe: every cart
	// mutation re-validates against stock, and the next checkout would
	// fail its own reservation step.
	if err := s.carts.Clear(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("order created but cart clear failed")
	}

	s.publishCreated(ctx, o)

	s.logger.Info().
		Str("order_id", o.ID.String()).
		Str("user_id", userID).
		Int("item_count", len(items)).
		Str("total", o.Pricing.Total.String()).
		Msg("order created")

	return o, nil
}

// reserveAll validates and reserves stock for every cart line, returning
// the frozen order items. On any failure it releases what was already
// reserved and returns the cause unchanged.
func (s *Service) reserveAll(ctx context.Context, cartLines []model.CartLine) ([]model.OrderItem, error) {
	reserved := make([]model.OrderItem, 0, len(cartLines))

	for _, l := range cartLines {
		product, err := s.catalog.GetProduct(ctx, l.ProductID)
		if err != nil {
			s.releaseAll(ctx, reserved)
			return nil, fmt.Errorf("failed to look up product: %w", err)
		}
		if product == nil {
			s.releaseAll(ctx, reserved)
			return nil, model.ErrProductNotFound
		}

		if err := s.ledger.Reserve(ctx, l.ProductID, l.Quantity); err != nil {
			s.releaseAll(ctx, reserved)
			return nil, err
		}

		reserved = append(reserved, model.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Size:      l.Size,
			Color:     l.Color,
			UnitPrice: product.Price,
			Quantity:  l.Quantity,
		})
	}

	return reserved, nil
}

// releaseAll rolls back reservations. It runs even when the caller's
// context is already cancelled; leaked reservations would otherwise block
// stock forever.
func (s *Service) releaseAll(ctx context.Context, items []model.OrderItem) {
	rctx := context.WithoutCancel(ctx)
	for _, it := range items {
		if err := s.ledger.Release(rctx, it.ProductID, it.Quantity); err != nil {
			s.logger.Error().
				Err(err).
				Str("product_id", it.ProductID).
				Int("quantity", it.Quantity).
				Msg("failed to release reservation during rollback")
		}
	}
}

// Get retrieves an order. Returns (nil, nil) when absent.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// ListByUser retrieves a user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	orders, err := s.store.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Transition moves an order to the next status. The version check makes
// the loser of two concurrent transitions fail; the retry loop re-reads
// fresh state, so a retried transition that is no longer legal fails with
// InvalidTransitionError rather than being applied blindly.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, next model.OrderStatus) (*model.Order, error) {
	var lastErr error

	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		o, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get order: %w", err)
		}
		if o == nil {
			return nil, model.ErrOrderNotFound
		}

		if !model.CanTransition(o.Status, next) {
			return nil, &model.InvalidTransitionError{From: o.Status, To: next}
		}

		err = s.store.UpdateStatus(ctx, id, next, o.Version)
		if errors.Is(err, model.ErrConcurrentModification) {
			lastErr = err
			s.logger.Debug().
				Str("order_id", id.String()).
				Int("attempt", attempt+1).
				Msg("transition version conflict, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update order status: %w", err)
		}

		from := o.Status

		// Re-read so callers see the row as stored, version and
		// updated-at included, rather than a locally mutated copy.
		updated, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to reload order: %w", err)
		}
		if updated == nil {
			return nil, model.ErrOrderNotFound
		}

		// Only entering Cancelled or Refunded touches stock. The version
		// check above guarantees a single winner, so the restock runs at
		// most once per order.
		if next.Restocks() {
			if err := s.restock(ctx, updated); err != nil {
				return nil, err
			}
		}

		s.publishStatusChanged(ctx, id, from, next)

		s.logger.Info().
			Str("order_id", id.String()).
			Str("from", string(from)).
			Str("to", string(next)).
			Msg("order transitioned")

		return updated, nil
	}

	s.logger.Warn().
		Str("order_id", id.String()).
		Str("to", string(next)).
		Msg("transition abandoned after repeated version conflicts")

	return nil, lastErr
}

// restock returns all of the order's reserved units to the ledger.
func (s *Service) restock(ctx context.Context, o *model.Order) error {
	rctx := context.WithoutCancel(ctx)
	for _, it := range o.Items {
		if err := s.ledger.Release(rctx, it.ProductID, it.Quantity); err != nil {
			s.logger.Error().
				Err(err).
				Str("order_id", o.ID.String()).
				Str("product_id", it.ProductID).
				Msg("failed to restock order item")
			return fmt.Errorf("failed to restock order %s: %w", o.ID, err)
		}
	}
	return nil
}

// SetTracking records the carrier tracking number on an order.
func (s *Service) SetTracking(ctx context.Context, id uuid.UUID, tracking string) (*model.Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if o == nil {
		return nil, model.ErrOrderNotFound
	}

	if err := s.store.SetTracking(ctx, id, tracking); err != nil {
		return nil, fmt.Errorf("failed to set tracking number: %w", err)
	}

	updated, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	if updated == nil {
		return nil, model.ErrOrderNotFound
	}
	return updated, nil
}

func (s *Service) publishCreated(ctx context.Context, o *model.Order) {
	items := make([]events.OrderItemPayload, len(o.Items))
	for i, it := range o.Items {
		items[i] = events.OrderItemPayload{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.String(),
		}
	}

	envelope, err := events.NewEnvelope(events.EventOrderCreated, eventProducer, events.OrderCreatedPayload{
		OrderID: o.ID.String(),
		UserID:  o.UserID,
		Items:   items,
		Total:   o.Pricing.Total.String(),
	})
	if err == nil {
		err = s.publisher.Publish(ctx, o.ID.String(), envelope)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", o.ID.String()).Msg("failed to publish order created event")
	}
}

func (s *Service) publishStatusChanged(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) {
	envelope, err := events.NewEnvelope(events.EventOrderStatusChanged, eventProducer, events.OrderStatusChangedPayload{
		OrderID: id.String(),
		From:    string(from),
		To:      string(to),
	})
	if err == nil {
		err = s.publisher.Publish(ctx, id.String(), envelope)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", id.String()).Msg("failed to publish status changed event")
	}
}
