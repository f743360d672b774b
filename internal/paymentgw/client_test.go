package paymentgw

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfs-fashion/storefront/internal/domain/payment"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/", SecretKey: "sk_test", CallbackURL: "https://shop/cb"}, nil)
	require.NoError(t, err)
	return c
}

func TestInitialize(t *testing.T) {
	var got initializeRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/paystack/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"authorizationUrl":"https://pay/abc","reference":"ref-1"}`))
	})

	res, err := c.Initialize(context.Background(), payment.Request{
		OrderID:  "o1",
		Amount:   decimal.RequireFromString("12500.5"),
		Email:    "ada@example.com",
		Provider: payment.ProviderPaystack,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://pay/abc", res.RedirectURL())
	assert.Equal(t, "ref-1", res.Reference)
	assert.Equal(t, "o1", got.OrderID)
	assert.Equal(t, "12500.50", got.Amount)
	assert.Equal(t, "https://shop/cb", got.CallbackURL)
}

func TestInitialize_PaymentURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"paymentUrl":"https://flw/xyz","reference":"ref-2"}`))
	})

	res, err := c.Initialize(context.Background(), payment.Request{
		OrderID: "o2", Amount: decimal.NewFromInt(1), Email: "a@b.c", Provider: payment.ProviderFlutterwave,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://flw/xyz", res.RedirectURL())
}

func TestInitialize_GatewayError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"provider unavailable"}`))
	})

	_, err := c.Initialize(context.Background(), payment.Request{
		OrderID: "o3", Amount: decimal.NewFromInt(1), Email: "a@b.c", Provider: payment.ProviderPaystack,
	})

	var gwErr *payment.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
	assert.Equal(t, "provider unavailable", gwErr.Message)
}

func TestInitialize_NoRedirect(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"reference":"ref"}`))
	})

	_, err := c.Initialize(context.Background(), payment.Request{
		OrderID: "o4", Amount: decimal.NewFromInt(1), Email: "a@b.c", Provider: payment.ProviderPaystack,
	})
	require.Error(t, err)
}

func TestInitialize_UnsupportedProvider(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("gateway must not be called")
	})

	_, err := c.Initialize(context.Background(), payment.Request{Provider: "stripe"})
	require.ErrorIs(t, err, payment.ErrUnsupportedProvider)
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
}
