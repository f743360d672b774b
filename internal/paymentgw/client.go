// Package paymentgw talks to the payment gateway that fronts the supported
// payment providers.
package paymentgw

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jfs-fashion/storefront/internal/domain/payment"
)

var _ payment.Initializer = (*Client)(nil)

// Config configures the gateway client.
type Config struct {
	BaseURL     string
	SecretKey   string
	CallbackURL string
	Timeout     time.Duration
}

// Client initializes payments over HTTP.
type Client struct {
	baseURL     string
	secretKey   string
	callbackURL string
	http        *http.Client
}

// NewClient creates a gateway client. Outgoing requests are traced with tp
// when it is non-nil.
func NewClient(cfg Config, tp trace.TracerProvider) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("payment gateway base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.Wrap(err, "parse payment gateway URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var opts []otelhttp.Option
	if tp != nil {
		opts = append(opts, otelhttp.WithTracerProvider(tp))
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, opts...),
		},
	}, nil
}

type initializeRequest struct {
	OrderID     string `json:"orderId"`
	Amount      string `json:"amount"`
	Email       string `json:"email"`
	Provider    string `json:"provider"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

type initializeResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
	PaymentURL       string `json:"paymentUrl"`
	Reference        string `json:"reference"`
	Message          string `json:"message"`
}

// Initialize asks the gateway to start a payment and returns the redirect
// target. Non-2xx answers are returned as *payment.GatewayError.
func (c *Client) Initialize(ctx context.Context, req payment.Request) (*payment.Result, error) {
	if !req.Provider.Valid() {
		return nil, payment.ErrUnsupportedProvider
	}

	body, err := json.Marshal(initializeRequest{
		OrderID:     req.OrderID,
		Amount:      req.Amount.StringFixed(2),
		Email:       req.Email,
		Provider:    string(req.Provider),
		CallbackURL: c.callbackURL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	endpoint := c.baseURL + "/" + url.PathEscape(string(req.Provider)) + "/initialize"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.secretKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	var out initializeResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode < 300 {
			return nil, errors.Wrap(err, "decode response")
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &payment.GatewayError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out.AuthorizationURL == "" && out.PaymentURL == "" {
		return nil, errors.New("payment gateway returned no redirect URL")
	}

	zctx.From(ctx).Debug("Payment initialized",
		zap.String("order_id", req.OrderID),
		zap.String("provider", string(req.Provider)),
		zap.String("reference", out.Reference),
	)

	return &payment.Result{
		AuthorizationURL: out.AuthorizationURL,
		PaymentURL:       out.PaymentURL,
		Reference:        out.Reference,
	}, nil
}
