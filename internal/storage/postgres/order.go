package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfs-fashion/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, order_number, items, shipping_zone_id, shipping_address,
		customer, payment_method, promo_code, subtotal, bulk_savings, shipping_fee, promo_discount,
		total, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	getOrderSQL = `SELECT id::text, order_number, items, shipping_zone_id, shipping_address, customer,
		payment_method, promo_code, subtotal, bulk_savings, shipping_fee, promo_discount, total,
		status, created_at
		FROM orders WHERE id::text = $1 OR order_number = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository. Items, address and customer
// are stored as JSONB.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal items")
	}
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return errors.Wrap(err, "marshal address")
	}
	customer, err := json.Marshal(o.Customer)
	if err != nil {
		return errors.Wrap(err, "marshal customer")
	}

	if _, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.OrderNumber, items, o.ShippingZoneID, address, customer,
		string(o.PaymentMethod), o.PromoCode, o.Subtotal, o.BulkSavings, o.ShippingFee,
		o.PromoDiscount, o.Total, string(o.Status), o.CreatedAt,
	); err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

// GetByID returns an order by id or order number.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                        order.Order
		items, address, customer []byte
		paymentMethod, status    string
	)
	if err := row.Scan(
		&o.ID, &o.OrderNumber, &items, &o.ShippingZoneID, &address, &customer,
		&paymentMethod, &o.PromoCode, &o.Subtotal, &o.BulkSavings, &o.ShippingFee,
		&o.PromoDiscount, &o.Total, &status, &o.CreatedAt,
	); err != nil {
		return o, err
	}
	o.PaymentMethod = order.PaymentMethod(paymentMethod)
	o.Status = order.Status(status)

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, errors.Wrap(err, "unmarshal items")
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return o, errors.Wrap(err, "unmarshal address")
	}
	if err := json.Unmarshal(customer, &o.Customer); err != nil {
		return o, errors.Wrap(err, "unmarshal customer")
	}
	return o, nil
}
