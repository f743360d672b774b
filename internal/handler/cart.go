package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jfs-fashion/storefront/internal/domain/cart"
)

type addCartItemRequest struct {
	VariantID string `json:"variantId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type cartItemResponse struct {
	ProductID          string         `json:"productId"`
	VariantID          string         `json:"variantId"`
	Name               string         `json:"name"`
	Image              string         `json:"image"`
	Size               string         `json:"size"`
	Color              string         `json:"color"`
	Price              float64        `json:"price"`
	Quantity           int            `json:"quantity"`
	BulkPricingTiers   []tierResponse `json:"bulkPricingTiers,omitempty"`
	EffectiveUnitPrice float64        `json:"effectiveUnitPrice"`
	LineTotal          float64        `json:"lineTotal"`
	AppliedTier        *tierResponse  `json:"appliedTier,omitempty"`
}

type cartResponse struct {
	CartID    string             `json:"cartId"`
	Items     []cartItemResponse `json:"items"`
	ItemCount int                `json:"itemCount"`
	Subtotal  float64            `json:"subtotal"`
	Savings   float64            `json:"savings"`
	Total     float64            `json:"total"`
}

// GetCart returns the priced cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, err := h.carts.Get(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse(s))
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), chi.URLParam(r, "cartId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddCartItem adds a catalog variant to the cart, merging with an existing
// line for the same variant.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.carts.AddVariant(r.Context(), chi.URLParam(r, "cartId"), req.VariantID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse(s))
}

// UpdateCartItem sets the quantity of a cart line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.carts.UpdateQuantity(r.Context(),
		chi.URLParam(r, "cartId"), chi.URLParam(r, "variantId"), req.Quantity,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse(s))
}

// RemoveCartItem drops a line from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	s, err := h.carts.RemoveItem(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "variantId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse(s))
}

func (h *Handler) cartResponse(s *cart.Summary) cartResponse {
	items := make([]cartItemResponse, len(s.Items))
	for i, it := range s.Items {
		line := s.Lines[i]
		resp := cartItemResponse{
			ProductID:          it.ProductID,
			VariantID:          it.VariantID,
			Name:               it.Name,
			Image:              h.imageURL(it.Image),
			Size:               it.Size,
			Color:              it.Color,
			Price:              money(it.Price),
			Quantity:           it.Quantity,
			EffectiveUnitPrice: money(line.EffectiveUnitPrice),
			LineTotal:          money(line.LineTotal),
		}
		for _, t := range it.BulkPricingTiers {
			resp.BulkPricingTiers = append(resp.BulkPricingTiers, tierResponse{
				MinQuantity:     t.MinQuantity,
				DiscountPercent: t.DiscountPercent.InexactFloat64(),
			})
		}
		if line.Tier != nil {
			resp.AppliedTier = &tierResponse{
				MinQuantity:     line.Tier.MinQuantity,
				DiscountPercent: line.Tier.DiscountPercent.InexactFloat64(),
			}
		}
		items[i] = resp
	}
	return cartResponse{
		CartID:    s.CartID,
		Items:     items,
		ItemCount: s.ItemCount,
		Subtotal:  money(s.Subtotal),
		Savings:   money(s.Savings),
		Total:     money(s.Total),
	}
}
