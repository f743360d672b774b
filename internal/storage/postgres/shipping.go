package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfs-fashion/storefront/internal/domain/shipping"
)

const listZonesSQL = `SELECT id, name, states, fee FROM shipping_zones ORDER BY position, id`

var _ shipping.Repository = (*ShippingRepository)(nil)

// ShippingRepository implements shipping.Repository.
type ShippingRepository struct {
	pool *pgxpool.Pool
}

// NewShippingRepository returns a ShippingRepository that uses the given pool.
func NewShippingRepository(pool *pgxpool.Pool) *ShippingRepository {
	return &ShippingRepository{pool: pool}
}

// List returns all shipping zones in display order.
func (r *ShippingRepository) List(ctx context.Context) ([]shipping.Zone, error) {
	rows, err := r.pool.Query(ctx, listZonesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list shipping zones")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (shipping.Zone, error) {
		var z shipping.Zone
		err := row.Scan(&z.ID, &z.Name, &z.States, &z.Fee)
		return z, err
	})
}

const upsertZoneSQL = `INSERT INTO shipping_zones (id, name, states, fee, position)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		states = EXCLUDED.states,
		fee = EXCLUDED.fee,
		position = EXCLUDED.position`

// Upsert writes zones, using their slice order as display order.
func (r *ShippingRepository) Upsert(ctx context.Context, zones []shipping.Zone) error {
	if len(zones) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, z := range zones {
		states := z.States
		if states == nil {
			states = []string{}
		}
		batch.Queue(upsertZoneSQL, z.ID, z.Name, states, z.Fee, i)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert shipping zones")
	}
	return nil
}
