package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrVariantNotFound is returned when a requested variant does not exist.
	ErrVariantNotFound = errors.New("variant not found")
)

// Product is a catalog entry. Variants carry the purchasable size/color
// combinations; bulk pricing tiers are authored per product.
type Product struct {
	ID               string
	Name             string
	Slug             string
	Category         string
	Description      string
	Images           []string
	BulkPricingTiers []Tier
	Variants         []Variant
}

// Tier is a bulk pricing breakpoint attached to a product.
type Tier struct {
	MinQuantity     int
	DiscountPercent decimal.Decimal
}

// Variant is a purchasable size/color combination with its own price and stock.
type Variant struct {
	ID        string
	ProductID string
	Size      string
	Color     string
	Price     decimal.Decimal
	Stock     int
}

// VariantDetail is a variant joined with the product attributes a cart line
// needs to snapshot.
type VariantDetail struct {
	Variant
	ProductName      string
	Image            string
	BulkPricingTiers []Tier
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetVariant(ctx context.Context, variantID string) (*VariantDetail, error)
	GetVariants(ctx context.Context, variantIDs []string) ([]VariantDetail, error)
}

// PrimaryImage returns the first product image, or "" when there is none.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
