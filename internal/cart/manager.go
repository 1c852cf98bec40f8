package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shopcore/internal/catalog"
	"shopcore/internal/model"
	"shopcore/internal/policy"
	"shopcore/internal/pricing"
)

// Manager implements Service. Carts are single-writer (one user owns one
// cart), so the manager does no locking of its own; stores replace the
// whole cart value on write.
type Manager struct {
	store    Store
	catalog  catalog.Store
	policies policy.Source
	logger   zerolog.Logger
}

// NewManager creates a new cart manager.
func NewManager(store Store, cat catalog.Store, policies policy.Source, logger zerolog.Logger) *Manager {
	return &Manager{
		store:    store,
		catalog:  cat,
		policies: policies,
		logger:   logger.With().Str("service", "cart").Logger(),
	}
}

// AddItem validates and adds an item, merging into an existing line with
// the same (product, size, color) identity.
func (m *Manager) AddItem(ctx context.Context, userID string, req AddItemRequest) (*View, error) {
	if req.Quantity < 1 {
		m.logger.Warn().
			Str("user_id", userID).
			Str("product_id", req.ProductID).
			Int("quantity", req.Quantity).
			Msg("invalid quantity")
		return nil, model.ErrInvalidQuantity
	}

	product, err := m.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	if !product.AllowsSize(req.Size) {
		return nil, &model.InvalidVariantError{ProductID: req.ProductID, Field: "size", Value: req.Size}
	}
	if !product.AllowsColor(req.Color) {
		return nil, &model.InvalidVariantError{ProductID: req.ProductID, Field: "color", Value: req.Color}
	}

	c, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	// The stock check covers the cumulative quantity of this product
	// across all of the cart's lines, not just the line being touched.
	cumulative := c.QuantityOf(req.ProductID) + req.Quantity
	if cumulative > product.StockQuantity {
		m.logger.Debug().
			Str("user_id", userID).
			Str("product_id", req.ProductID).
			Int("requested", cumulative).
			Int("available", product.StockQuantity).
			Msg("add item rejected, insufficient stock")
		return nil, &model.InsufficientStockError{
			ProductID: req.ProductID,
			Requested: cumulative,
			Available: product.StockQuantity,
		}
	}

	line := model.CartLine{
		ProductID: req.ProductID,
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
	}
	if i := c.FindLine(line.Key()); i >= 0 {
		c.Lines[i].Quantity += req.Quantity
	} else {
		c.Lines = append(c.Lines, line)
	}

	return m.save(ctx, userID, c)
}

// UpdateQuantity changes a line's quantity, re-validating against current
// stock. A quantity of zero or less removes the line.
func (m *Manager) UpdateQuantity(ctx context.Context, userID, lineKey string, quantity int) (*View, error) {
	if quantity <= 0 {
		return m.RemoveItem(ctx, userID, lineKey)
	}

	c, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	i := c.FindLine(lineKey)
	if i < 0 {
		return nil, model.ErrCartLineNotFound
	}

	product, err := m.catalog.GetProduct(ctx, c.Lines[i].ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	cumulative := c.QuantityOf(product.ID) - c.Lines[i].Quantity + quantity
	if cumulative > product.StockQuantity {
		return nil, &model.InsufficientStockError{
			ProductID: product.ID,
			Requested: cumulative,
			Available: product.StockQuantity,
		}
	}

	c.Lines[i].Quantity = quantity

	return m.save(ctx, userID, c)
}

// RemoveItem removes a line. Removing an absent line is not an error.
func (m *Manager) RemoveItem(ctx context.Context, userID, lineKey string) (*View, error) {
	c, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if i := c.FindLine(lineKey); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}

	return m.save(ctx, userID, c)
}

// Get returns the cart and its current pricing.
func (m *Manager) Get(ctx context.Context, userID string) (*View, error) {
	c, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	breakdown, err := m.price(ctx, c)
	if err != nil {
		return nil, err
	}

	return &View{Cart: *c, Pricing: breakdown}, nil
}

// Clear empties the cart.
func (m *Manager) Clear(ctx context.Context, userID string) error {
	c, err := m.load(ctx, userID)
	if err != nil {
		return err
	}

	c.Lines = nil
	c.UpdatedAt = time.Now()

	if err := m.store.Save(ctx, userID, c); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}

	m.logger.Debug().Str("user_id", userID).Msg("cart cleared")
	return nil
}

// load fetches the user's cart, materialising an empty one on first use.
func (m *Manager) load(ctx context.Context, userID string) (*model.Cart, error) {
	c, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if c == nil {
		c = &model.Cart{UserID: userID}
	}
	return c, nil
}

func (m *Manager) save(ctx context.Context, userID string, c *model.Cart) (*View, error) {
	c.UpdatedAt = time.Now()

	if err := m.store.Save(ctx, userID, c); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	breakdown, err := m.price(ctx, c)
	if err != nil {
		return nil, err
	}

	m.logger.Debug().
		Str("user_id", userID).
		Int("lines", len(c.Lines)).
		Msg("cart updated")

	return &View{Cart: *c, Pricing: breakdown}, nil
}

// price recomputes the breakdown from current catalogue prices. Breakdowns
// are never cached across mutations.
func (m *Manager) price(ctx context.Context, c *model.Cart) (model.PriceBreakdown, error) {
	lines := make([]pricing.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		product, err := m.catalog.GetProduct(ctx, l.ProductID)
		if err != nil {
			return model.PriceBreakdown{}, fmt.Errorf("failed to price cart line: %w", err)
		}
		if product == nil {
			return model.PriceBreakdown{}, model.ErrProductNotFound
		}
		lines = append(lines, pricing.Line{UnitPrice: product.Price, Quantity: l.Quantity})
	}

	return pricing.Compute(lines, m.policies.Policy("")), nil
}
