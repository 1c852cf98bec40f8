package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"shopcore/internal/model"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a new PostgreSQL-backed order store.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("store", "order").Logger(),
	}
}

// Create persists a new order with its items in one transaction.
func (s *PostgresStore) Create(ctx context.Context, o *model.Order) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	orderQuery := `
		INSERT INTO orders (
			id, user_id, status, subtotal, shipping_fee, tax, total,
			shipping_address, payment_ref, tracking_number, version,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = tx.Exec(ctx, orderQuery,
		o.ID, o.UserID, string(o.Status),
		o.Pricing.Subtotal, o.Pricing.ShippingFee, o.Pricing.Tax, o.Pricing.Total,
		o.ShippingAddress, o.PaymentRef, o.TrackingNumber, o.Version,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("failed to insert order")
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, size, color, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(itemQuery, uuid.New(), o.ID, item.ProductID, item.Name, item.Size, item.Color, item.UnitPrice, item.Quantity)
	}

	results := tx.SendBatch(ctx, batch)
	for range o.Items {
		if _, err := results.Exec(); err != nil {
			results.Close()
			s.logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("failed to insert order item")
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	s.logger.Debug().
		Str("order_id", o.ID.String()).
		Int("item_count", len(o.Items)).
		Msg("order persisted")

	return nil
}

// Get retrieves an order with its items. Returns (nil, nil) when absent.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	orderQuery := `
		SELECT id, user_id, status, subtotal, shipping_fee, tax, total,
		       shipping_address, payment_ref, tracking_number, version,
		       created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var o model.Order
	var status string
	err := s.pool.QueryRow(ctx, orderQuery, id).Scan(
		&o.ID, &o.UserID, &status,
		&o.Pricing.Subtotal, &o.Pricing.ShippingFee, &o.Pricing.Tax, &o.Pricing.Total,
		&o.ShippingAddress, &o.PaymentRef, &o.TrackingNumber, &o.Version,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	o.Status = model.OrderStatus(status)

	items, err := s.itemsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (s *PostgresStore) itemsFor(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT product_id, name, size, color, unit_price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Size, &item.Color, &item.UnitPrice, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// ListByUser retrieves a user's orders, newest first. Items are loaded per
// order; order lists are small enough that the extra round trips have not
// mattered.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	query := `
		SELECT id
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	orders := make([]model.Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if o != nil {
			orders = append(orders, *o)
		}
	}

	return orders, nil
}

// UpdateStatus applies a status change under an optimistic version check.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, next model.OrderStatus, expectedVersion int64) error {
	query := `
		UPDATE orders
		SET status = $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $3
	`

	ct, err := s.pool.Exec(ctx, query, id, string(next), expectedVersion)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		// Either the order is gone or someone else moved it first.
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return model.ErrOrderNotFound
		}
		return model.ErrConcurrentModification
	}

	return nil
}

// SetTracking records the tracking number.
func (s *PostgresStore) SetTracking(ctx context.Context, id uuid.UUID, tracking string) error {
	ct, err := s.pool.Exec(ctx,
		`UPDATE orders SET tracking_number = $2, updated_at = now() WHERE id = $1`,
		id, tracking)
	if err != nil {
		return fmt.Errorf("failed to set tracking number: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}
