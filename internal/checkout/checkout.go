// Package checkout turns a stored cart into a placed order.
//
// Checkout is a linear chain: load the cart, resolve the shipping zone,
// validate the promo code, place the order, clear the cart and, for
// electronic payment methods, start the payment. A failure before the order
// is placed aborts the chain and leaves the cart untouched. Once the order is
// placed it stays placed, whatever happens to payment initialization.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/jfs-fashion/storefront/internal/domain/cart"
	"github.com/jfs-fashion/storefront/internal/domain/order"
	"github.com/jfs-fashion/storefront/internal/domain/payment"
	"github.com/jfs-fashion/storefront/internal/domain/promotion"
	"github.com/jfs-fashion/storefront/internal/domain/shipping"
)

// ErrEmptyCart is returned when checking out a cart without items.
var ErrEmptyCart = errors.New("cart is empty")

// PaymentError reports a failed payment initialization for an order that was
// nevertheless placed.
type PaymentError struct {
	OrderID string
	Err     error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("initialize payment for order %s: %v", e.OrderID, e.Err)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// Carts loads and clears stored carts.
type Carts interface {
	Load(ctx context.Context, cartID string) (*cart.Cart, error)
	Clear(ctx context.Context, cartID string) error
}

// Orders places orders.
type Orders interface {
	Create(ctx context.Context, req order.CreateRequest) (*order.Result, error)
}

// Request is a checkout submission for a stored cart.
type Request struct {
	CartID string
	// ShippingZoneID selects the zone explicitly. When empty the zone is
	// resolved from ShippingAddress.State.
	ShippingZoneID  string
	ShippingAddress order.Address
	Customer        order.CustomerInfo
	PromoCode       string
	PaymentMethod   order.PaymentMethod
	// Provider defaults to paystack for electronic payment methods.
	Provider payment.Provider
}

// Result is a completed checkout.
type Result struct {
	Order    *order.Result
	Zone     shipping.Zone
	Discount *promotion.Discount
	// Payment is nil for pay-on-delivery orders.
	Payment *payment.Result
}

// RedirectURL returns where the shopper should go next, or "" when no
// payment step is needed.
func (r *Result) RedirectURL() string {
	if r.Payment == nil {
		return ""
	}
	return r.Payment.RedirectURL()
}

// Orchestrator runs checkouts.
type Orchestrator struct {
	carts    Carts
	zones    shipping.Repository
	promos   promotion.Validator
	orders   Orders
	payments payment.Initializer

	completed metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates an Orchestrator.
func New(
	carts Carts,
	zones shipping.Repository,
	promos promotion.Validator,
	orders Orders,
	payments payment.Initializer,
	mp metric.MeterProvider,
) (*Orchestrator, error) {
	meter := mp.Meter("github.com/jfs-fashion/storefront/internal/checkout")
	completed, err := meter.Int64Counter("checkout.completed",
		metric.WithDescription("Checkouts that placed an order"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "completed counter")
	}
	failed, err := meter.Int64Counter("checkout.failed",
		metric.WithDescription("Checkouts that failed, by stage"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed counter")
	}
	return &Orchestrator{
		carts:     carts,
		zones:     zones,
		promos:    promos,
		orders:    orders,
		payments:  payments,
		completed: completed,
		failed:    failed,
	}, nil
}

// Checkout places an order for the cart in req.
//
// When payment initialization fails the returned Result still carries the
// placed order and the error is a *PaymentError.
func (o *Orchestrator) Checkout(ctx context.Context, req Request) (*Result, error) {
	lg := zctx.From(ctx).With(zap.String("cart_id", req.CartID))

	c, err := o.carts.Load(ctx, req.CartID)
	if err != nil {
		return nil, o.fail(ctx, "cart", errors.Wrap(err, "load cart"))
	}
	if c.Len() == 0 {
		return nil, o.fail(ctx, "cart", ErrEmptyCart)
	}

	zone, err := o.zone(ctx, req)
	if err != nil {
		return nil, o.fail(ctx, "shipping", err)
	}

	res := &Result{Zone: *zone}
	if code := strings.TrimSpace(req.PromoCode); code != "" {
		res.Discount, err = o.promos.Validate(ctx, code, c.Total())
		if err != nil {
			return nil, o.fail(ctx, "promo", errors.Wrap(err, "validate promo code"))
		}
	}

	items := c.Items()
	lines := make([]order.LineRequest, len(items))
	for i, it := range items {
		lines[i] = order.LineRequest{VariantID: it.VariantID, Quantity: it.Quantity}
	}
	res.Order, err = o.orders.Create(ctx, order.CreateRequest{
		Items:           lines,
		ShippingZoneID:  zone.ID,
		ShippingAddress: req.ShippingAddress,
		Customer:        req.Customer,
		PromoCode:       req.PromoCode,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		return nil, o.fail(ctx, "order", errors.Wrap(err, "create order"))
	}
	// The order prices the promo against current catalog prices, which may
	// differ from the cart snapshot. Report what was actually applied.
	if res.Order.Discount != nil {
		res.Discount = res.Order.Discount
	}
	o.completed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_method", string(req.PaymentMethod)),
	))
	lg = lg.With(zap.String("order_id", res.Order.ID))

	if err := o.carts.Clear(ctx, req.CartID); err != nil {
		lg.Warn("Clear cart after checkout", zap.Error(err))
	}

	if !req.PaymentMethod.Electronic() {
		return res, nil
	}

	provider := req.Provider
	if provider == "" {
		provider = payment.ProviderPaystack
	}
	res.Payment, err = o.payments.Initialize(ctx, payment.Request{
		OrderID:  res.Order.ID,
		Amount:   res.Order.Total,
		Email:    req.Customer.Email,
		Provider: provider,
	})
	if err != nil {
		lg.Warn("Payment initialization failed", zap.Error(err))
		o.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "payment")))
		return res, &PaymentError{OrderID: res.Order.ID, Err: err}
	}
	return res, nil
}

func (o *Orchestrator) zone(ctx context.Context, req Request) (*shipping.Zone, error) {
	zones, err := o.zones.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list shipping zones")
	}
	if id := strings.TrimSpace(req.ShippingZoneID); id != "" {
		z, ok := shipping.Find(zones, id)
		if !ok {
			return nil, order.ErrShippingZoneNotFound
		}
		return z, nil
	}
	return shipping.Resolve(zones, req.ShippingAddress.State)
}

func (o *Orchestrator) fail(ctx context.Context, stage string, err error) error {
	o.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
	return err
}
