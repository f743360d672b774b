package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jfs-fashion/storefront/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository stores cart records under "jfs:jfs-cart-storage:<cartID>".
// Each Save refreshes the TTL so idle carts expire.
type CartRepository struct {
	client *Client
	ttl    time.Duration
}

// NewCartRepository returns a CartRepository. A zero ttl keeps carts forever.
func NewCartRepository(client *Client, ttl time.Duration) *CartRepository {
	return &CartRepository{client: client, ttl: ttl}
}

// Load returns the stored items, or an empty slice for an unknown cart.
func (r *CartRepository) Load(ctx context.Context, cartID string) ([]cart.Item, error) {
	data, err := r.client.store.Get(ctx, cartKey(cartID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return []cart.Item{}, nil
		}
		return nil, errors.Wrapf(err, "get cart %q", cartID)
	}
	return cart.UnmarshalRecord(data)
}

// Save replaces the stored record for cartID.
func (r *CartRepository) Save(ctx context.Context, cartID string, items []cart.Item) error {
	if err := r.client.store.Set(ctx, cartKey(cartID), cart.MarshalRecord(items), r.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set cart %q", cartID)
	}
	return nil
}

// Delete removes the stored record.
func (r *CartRepository) Delete(ctx context.Context, cartID string) error {
	if err := r.client.store.Del(ctx, cartKey(cartID)).Err(); err != nil {
		return errors.Wrapf(err, "del cart %q", cartID)
	}
	return nil
}

func cartKey(cartID string) string {
	return buildKey(cart.StorageKey, cartID)
}
