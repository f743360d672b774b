package checkout

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/jfs-fashion/storefront/internal/domain/cart"
	"github.com/jfs-fashion/storefront/internal/domain/order"
	"github.com/jfs-fashion/storefront/internal/domain/payment"
	"github.com/jfs-fashion/storefront/internal/domain/promotion"
	"github.com/jfs-fashion/storefront/internal/domain/shipping"
)

type mockCarts struct {
	items    []cart.Item
	loadErr  error
	clearErr error
	cleared  bool
}

func (m *mockCarts) Load(context.Context, string) (*cart.Cart, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return cart.New(m.items), nil
}

func (m *mockCarts) Clear(context.Context, string) error {
	m.cleared = true
	return m.clearErr
}

type mockZones struct {
	zones []shipping.Zone
	err   error
}

func (m *mockZones) List(context.Context) ([]shipping.Zone, error) { return m.zones, m.err }

type mockPromos struct {
	err       error
	gotAmount decimal.Decimal
	called    bool
}

func (m *mockPromos) Validate(_ context.Context, code string, amount decimal.Decimal) (*promotion.Discount, error) {
	m.called = true
	m.gotAmount = amount
	if m.err != nil {
		return nil, m.err
	}
	return &promotion.Discount{Code: code, Amount: decimal.NewFromInt(500), Message: "500 off"}, nil
}

type mockOrders struct {
	got      *order.CreateRequest
	discount *promotion.Discount
	err      error
	called   bool
}

func (m *mockOrders) Create(_ context.Context, req order.CreateRequest) (*order.Result, error) {
	m.called = true
	m.got = &req
	if m.err != nil {
		return nil, m.err
	}
	return &order.Result{
		ID:          "o-1",
		OrderNumber: "JFS-20260301-ABCDEF",
		Total:       decimal.RequireFromString("6900"),
		Discount:    m.discount,
	}, nil
}

type mockPayments struct {
	got    *payment.Request
	err    error
	called bool
}

func (m *mockPayments) Initialize(_ context.Context, req payment.Request) (*payment.Result, error) {
	m.called = true
	m.got = &req
	if m.err != nil {
		return nil, m.err
	}
	return &payment.Result{AuthorizationURL: "https://checkout.paystack.test/abc", Reference: "ref-1"}, nil
}

type fixture struct {
	carts    *mockCarts
	zones    *mockZones
	promos   *mockPromos
	orders   *mockOrders
	payments *mockPayments
	o        *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		carts: &mockCarts{items: []cart.Item{{
			ProductID: "p1",
			VariantID: "v1",
			Price:     decimal.NewFromInt(1000),
			Quantity:  6,
			BulkPricingTiers: []cart.Tier{
				{MinQuantity: 5, DiscountPercent: decimal.NewFromInt(10)},
			},
		}}},
		zones: &mockZones{zones: []shipping.Zone{
			{ID: "lagos", Name: "Lagos", States: []string{"Lagos"}, Fee: decimal.NewFromInt(1500)},
			{ID: "sw", Name: "South West", States: []string{"Oyo", "Ogun"}, Fee: decimal.NewFromInt(3000)},
		}},
		promos:   &mockPromos{},
		orders:   &mockOrders{},
		payments: &mockPayments{},
	}
	o, err := New(f.carts, f.zones, f.promos, f.orders, f.payments, noop.NewMeterProvider())
	require.NoError(t, err)
	f.o = o
	return f
}

func request(method order.PaymentMethod) Request {
	return Request{
		CartID:          "c1",
		ShippingAddress: order.Address{Line1: "1 Marina", City: "Ibadan", State: " oyo ", Country: "NG"},
		Customer:        order.CustomerInfo{FirstName: "Ada", Email: "ada@example.com"},
		PaymentMethod:   method,
	}
}

func TestCheckout_Card(t *testing.T) {
	f := newFixture(t)
	req := request(order.PaymentCard)
	req.PromoCode = "WELCOME"

	res, err := f.o.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "sw", res.Zone.ID)
	assert.True(t, decimal.NewFromInt(5400).Equal(f.promos.gotAmount), "promo validated against discounted total")
	require.NotNil(t, res.Discount)

	require.NotNil(t, f.orders.got)
	assert.Equal(t, "sw", f.orders.got.ShippingZoneID)
	assert.Equal(t, []order.LineRequest{{VariantID: "v1", Quantity: 6}}, f.orders.got.Items)
	assert.Equal(t, "WELCOME", f.orders.got.PromoCode)

	assert.True(t, f.carts.cleared)

	require.NotNil(t, f.payments.got)
	assert.Equal(t, "o-1", f.payments.got.OrderID)
	assert.Equal(t, payment.ProviderPaystack, f.payments.got.Provider)
	assert.True(t, decimal.RequireFromString("6900").Equal(f.payments.got.Amount))
	assert.Equal(t, "ada@example.com", f.payments.got.Email)
	assert.Equal(t, "https://checkout.paystack.test/abc", res.RedirectURL())
}

func TestCheckout_ReportsDiscountAppliedToOrder(t *testing.T) {
	f := newFixture(t)
	// Catalog price moved after the cart was filled; the order priced the
	// promo at 450 instead of the snapshot's 500.
	f.orders.discount = &promotion.Discount{Code: "WELCOME", Amount: decimal.NewFromInt(450), Message: "450 off"}
	req := request(order.PaymentOnDelivery)
	req.PromoCode = "WELCOME"

	res, err := f.o.Checkout(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, res.Discount)
	assert.True(t, decimal.NewFromInt(450).Equal(res.Discount.Amount), "got %s", res.Discount.Amount)
	assert.Equal(t, "450 off", res.Discount.Message)
}

func TestCheckout_ExplicitZoneAndProvider(t *testing.T) {
	f := newFixture(t)
	req := request(order.PaymentBankTransfer)
	req.ShippingZoneID = "lagos"
	req.Provider = payment.ProviderFlutterwave

	res, err := f.o.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "lagos", res.Zone.ID)
	assert.Equal(t, payment.ProviderFlutterwave, f.payments.got.Provider)
	assert.False(t, f.promos.called)
}

func TestCheckout_PayOnDelivery(t *testing.T) {
	f := newFixture(t)

	res, err := f.o.Checkout(context.Background(), request(order.PaymentOnDelivery))
	require.NoError(t, err)
	assert.False(t, f.payments.called)
	assert.Nil(t, res.Payment)
	assert.Empty(t, res.RedirectURL())
	assert.True(t, f.carts.cleared)
}

func TestCheckout_PaymentFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.payments.err = &payment.GatewayError{StatusCode: 502, Message: "upstream"}

	res, err := f.o.Checkout(context.Background(), request(order.PaymentCard))
	require.Error(t, err)

	var payErr *PaymentError
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, "o-1", payErr.OrderID)

	var gwErr *payment.GatewayError
	assert.ErrorAs(t, err, &gwErr)

	require.NotNil(t, res)
	assert.Equal(t, "JFS-20260301-ABCDEF", res.Order.OrderNumber)
	assert.True(t, f.carts.cleared)
}

func TestCheckout_ClearFailureIgnored(t *testing.T) {
	f := newFixture(t)
	f.carts.clearErr = errors.New("redis down")

	_, err := f.o.Checkout(context.Background(), request(order.PaymentOnDelivery))
	require.NoError(t, err)
}

func TestCheckout_AbortsBeforeOrder(t *testing.T) {
	for _, tt := range []struct {
		Name    string
		Prepare func(f *fixture, req *Request)
		Check   func(t *testing.T, err error)
	}{
		{
			Name:    "LoadError",
			Prepare: func(f *fixture, _ *Request) { f.carts.loadErr = errors.New("boom") },
			Check:   func(t *testing.T, err error) { assert.ErrorContains(t, err, "load cart") },
		},
		{
			Name:    "EmptyCart",
			Prepare: func(f *fixture, _ *Request) { f.carts.items = nil },
			Check:   func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrEmptyCart) },
		},
		{
			Name:    "ZonesError",
			Prepare: func(f *fixture, _ *Request) { f.zones.err = errors.New("boom") },
			Check:   func(t *testing.T, err error) { assert.ErrorContains(t, err, "list shipping zones") },
		},
		{
			Name:    "UnknownState",
			Prepare: func(_ *fixture, req *Request) { req.ShippingAddress.State = "Kano" },
			Check: func(t *testing.T, err error) {
				var zErr *shipping.ZoneNotFoundError
				assert.ErrorAs(t, err, &zErr)
			},
		},
		{
			Name:    "UnknownZoneID",
			Prepare: func(_ *fixture, req *Request) { req.ShippingZoneID = "north" },
			Check:   func(t *testing.T, err error) { assert.ErrorIs(t, err, order.ErrShippingZoneNotFound) },
		},
		{
			Name: "InvalidPromo",
			Prepare: func(f *fixture, req *Request) {
				req.PromoCode = "NOPE"
				f.promos.err = promotion.ErrInvalidCode
			},
			Check: func(t *testing.T, err error) { assert.ErrorIs(t, err, promotion.ErrInvalidCode) },
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			f := newFixture(t)
			req := request(order.PaymentCard)
			tt.Prepare(f, &req)

			res, err := f.o.Checkout(context.Background(), req)
			require.Error(t, err)
			assert.Nil(t, res)
			tt.Check(t, err)

			assert.False(t, f.orders.called)
			assert.False(t, f.carts.cleared)
			assert.False(t, f.payments.called)
		})
	}
}

func TestCheckout_OrderFailureLeavesCart(t *testing.T) {
	f := newFixture(t)
	f.orders.err = &order.VariantNotFoundError{VariantID: "v1"}

	res, err := f.o.Checkout(context.Background(), request(order.PaymentCard))
	require.Error(t, err)
	assert.Nil(t, res)

	var vErr *order.VariantNotFoundError
	assert.ErrorAs(t, err, &vErr)
	assert.False(t, f.carts.cleared)
	assert.False(t, f.payments.called)
}
