// Package handler serves the storefront JSON API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/jfs-fashion/storefront/internal/checkout"
	"github.com/jfs-fashion/storefront/internal/domain/cart"
	"github.com/jfs-fashion/storefront/internal/domain/catalog"
	"github.com/jfs-fashion/storefront/internal/domain/order"
	"github.com/jfs-fashion/storefront/internal/domain/payment"
	"github.com/jfs-fashion/storefront/internal/domain/promotion"
	"github.com/jfs-fashion/storefront/internal/domain/shipping"
)

// Carts is the cart service surface used by the cart endpoints.
type Carts interface {
	Get(ctx context.Context, cartID string) (*cart.Summary, error)
	AddVariant(ctx context.Context, cartID, variantID string, quantity int) (*cart.Summary, error)
	UpdateQuantity(ctx context.Context, cartID, variantID string, quantity int) (*cart.Summary, error)
	RemoveItem(ctx context.Context, cartID, variantID string) (*cart.Summary, error)
	Clear(ctx context.Context, cartID string) error
}

// Orders places and fetches orders.
type Orders interface {
	Create(ctx context.Context, req order.CreateRequest) (*order.Result, error)
	Get(ctx context.Context, id string) (*order.Order, error)
}

// Checkout runs a cart checkout.
type Checkout interface {
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	ImageBaseURL string
}

// Deps are the domain collaborators of the Handler.
type Deps struct {
	Catalog  catalog.Repository
	Zones    shipping.Repository
	Promos   promotion.Validator
	Carts    Carts
	Orders   Orders
	Checkout Checkout
	Payments payment.Initializer
}

// Handler maps HTTP requests onto the domain services.
type Handler struct {
	catalog  catalog.Repository
	zones    shipping.Repository
	promos   promotion.Validator
	carts    Carts
	orders   Orders
	checkout Checkout
	payments payment.Initializer

	imageBaseURL string
}

// New creates a Handler.
func New(cfg Config, deps Deps) *Handler {
	return &Handler{
		catalog:      deps.Catalog,
		zones:        deps.Zones,
		promos:       deps.Promos,
		carts:        deps.Carts,
		orders:       deps.Orders,
		checkout:     deps.Checkout,
		payments:     deps.Payments,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes mounts the API on r. Routes that place orders or start payments are
// wrapped with protect; a nil protect leaves them open.
func (h *Handler) Routes(r chi.Router, protect func(http.Handler) http.Handler) {
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}
	r.Get("/products", h.ListProducts)
	r.Get("/products/{productId}", h.GetProduct)
	r.Get("/shipping-zones", h.ListShippingZones)
	r.Post("/promotions/validate", h.ValidatePromotion)

	r.Route("/carts/{cartId}", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddCartItem)
		r.Patch("/items/{variantId}", h.UpdateCartItem)
		r.Delete("/items/{variantId}", h.RemoveCartItem)
		r.With(protect).Post("/checkout", h.CheckoutCart)
	})

	r.Group(func(r chi.Router) {
		r.Use(protect)
		r.Post("/orders", h.CreateOrder)
		r.Get("/orders/{orderId}", h.GetOrder)
		r.Post("/payments/initialize", h.InitializePayment)
	})
}

// Router returns a standalone router serving the API under /api.
func (h *Handler) Router(protect func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.Routes(r, protect)
	})
	return r
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
