package payment

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Provider names a payment processor.
type Provider string

const (
	ProviderPaystack    Provider = "paystack"
	ProviderFlutterwave Provider = "flutterwave"
)

// Valid reports whether p is a supported provider.
func (p Provider) Valid() bool {
	return p == ProviderPaystack || p == ProviderFlutterwave
}

// ErrUnsupportedProvider is returned for unknown providers.
var ErrUnsupportedProvider = errors.New("unsupported payment provider")

// Request asks a provider to start a payment for an order.
type Request struct {
	OrderID  string
	Amount   decimal.Decimal
	Email    string
	Provider Provider
}

// Result carries where to send the shopper to complete payment. Providers
// answer with either AuthorizationURL or PaymentURL.
type Result struct {
	AuthorizationURL string
	PaymentURL       string
	Reference        string
}

// RedirectURL returns the URL the shopper should be redirected to.
func (r *Result) RedirectURL() string {
	if r.AuthorizationURL != "" {
		return r.AuthorizationURL
	}
	return r.PaymentURL
}

// Initializer starts payments with an external provider.
type Initializer interface {
	Initialize(ctx context.Context, req Request) (*Result, error)
}

// GatewayError is a non-success answer from the payment gateway.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: status %d: %s", e.StatusCode, e.Message)
}
