package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfs-fashion/storefront/internal/domain/cart"
)

const (
	loadCartSQL = `SELECT record FROM carts WHERE id = $1`

	saveCartSQL = `INSERT INTO carts (id, record, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record, updated_at = NOW()`

	deleteCartSQL = `DELETE FROM carts WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository stores cart records as JSONB rows keyed by cart id.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Load returns the stored items, or an empty slice for an unknown cart.
func (r *CartRepository) Load(ctx context.Context, cartID string) ([]cart.Item, error) {
	var record []byte
	if err := r.pool.QueryRow(ctx, loadCartSQL, cartID).Scan(&record); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []cart.Item{}, nil
		}
		return nil, errors.Wrapf(err, "load cart %q", cartID)
	}
	return cart.UnmarshalRecord(record)
}

// Save replaces the stored record for cartID.
func (r *CartRepository) Save(ctx context.Context, cartID string, items []cart.Item) error {
	if _, err := r.pool.Exec(ctx, saveCartSQL, cartID, string(cart.MarshalRecord(items))); err != nil {
		return errors.Wrapf(err, "save cart %q", cartID)
	}
	return nil
}

// Delete removes the stored record. Deleting an unknown cart is not an error.
func (r *CartRepository) Delete(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, deleteCartSQL, cartID); err != nil {
		return errors.Wrapf(err, "delete cart %q", cartID)
	}
	return nil
}
