package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"shopcore/internal/model"
)

// PostgresLedger implements Ledger against the products table, using row
// locks to serialize concurrent reservations per product.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresLedger creates a new PostgreSQL-backed stock ledger.
func NewPostgresLedger(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresLedger {
	return &PostgresLedger{
		pool:   pool,
		logger: logger.With().Str("component", "stock-ledger").Logger(),
	}
}

// Reserve decrements available stock by qty under a row lock, so two
// concurrent reservations of the last unit cannot both succeed.
func (l *PostgresLedger) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin reservation transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var available int
	err = tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrProductNotFound
		}
		return fmt.Errorf("failed to lock product row: %w", err)
	}

	if available < qty {
		l.logger.Debug().
			Str("product_id", productID).
			Int("requested", qty).
			Int("available", available).
			Msg("reservation rejected")
		return &model.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: available,
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE products SET stock = stock - $2, reserved = reserved + $2 WHERE id = $1`,
		productID, qty)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	l.logger.Debug().
		Str("product_id", productID).
		Int("quantity", qty).
		Msg("stock reserved")

	return nil
}

// Release returns qty previously reserved units to available stock.
func (l *PostgresLedger) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin release transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var reserved int
	err = tx.QueryRow(ctx, `SELECT reserved FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&reserved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrProductNotFound
		}
		return fmt.Errorf("failed to lock product row: %w", err)
	}

	if reserved < qty {
		err := &model.LedgerInvariantError{
			ProductID: productID,
			Detail:    "release exceeds reserved quantity",
		}
		l.logger.Error().
			Str("product_id", productID).
			Int("release", qty).
			Int("reserved", reserved).
			Msg("ledger invariant violation")
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE products SET stock = stock + $2, reserved = reserved - $2 WHERE id = $1`,
		productID, qty)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit release: %w", err)
	}

	l.logger.Debug().
		Str("product_id", productID).
		Int("quantity", qty).
		Msg("stock released")

	return nil
}

// Availability returns the number of units available for sale.
func (l *PostgresLedger) Availability(ctx context.Context, productID string) (int, error) {
	var available int
	err := l.pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrProductNotFound
		}
		return 0, fmt.Errorf("failed to query availability: %w", err)
	}
	return available, nil
}

// SetStock sets the available quantity for a product. The reserved count
// is left alone so that live orders can still release what they hold.
func (l *PostgresLedger) SetStock(ctx context.Context, productID string, qty int) error {
	if qty < 0 {
		return model.ErrInvalidQuantity
	}

	ct, err := l.pool.Exec(ctx,
		`UPDATE products SET stock = $2 WHERE id = $1`,
		productID, qty)
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}

	l.logger.Info().
		Str("product_id", productID).
		Int("quantity", qty).
		Msg("stock level set")

	return nil
}
