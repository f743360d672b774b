package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/jfs-fashion/storefront/internal/domain/catalog"
)

type tierResponse struct {
	MinQuantity     int     `json:"minQuantity"`
	DiscountPercent float64 `json:"discountPercent"`
}

type variantResponse struct {
	ID    string  `json:"id"`
	Size  string  `json:"size"`
	Color string  `json:"color"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

type productResponse struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Slug             string            `json:"slug"`
	Category         string            `json:"category"`
	Description      string            `json:"description,omitempty"`
	Images           []string          `json:"images"`
	Variants         []variantResponse `json:"variants"`
	BulkPricingTiers []tierResponse    `json:"bulkPricingTiers,omitempty"`
}

// ListProducts returns every product in the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list products"))
		return
	}
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = h.productResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProduct returns a product by id or slug.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetByID(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.productResponse(*p))
}

func (h *Handler) productResponse(p catalog.Product) productResponse {
	images := make([]string, len(p.Images))
	for i, img := range p.Images {
		images[i] = h.imageURL(img)
	}
	variants := make([]variantResponse, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = variantResponse{
			ID:    v.ID,
			Size:  v.Size,
			Color: v.Color,
			Price: money(v.Price),
			Stock: v.Stock,
		}
	}
	var tiers []tierResponse
	for _, t := range p.BulkPricingTiers {
		tiers = append(tiers, tierResponse{
			MinQuantity:     t.MinQuantity,
			DiscountPercent: t.DiscountPercent.InexactFloat64(),
		})
	}
	return productResponse{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.Slug,
		Category:         p.Category,
		Description:      p.Description,
		Images:           images,
		Variants:         variants,
		BulkPricingTiers: tiers,
	}
}

// imageURL prefixes relative image paths with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimRight(h.imageBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
