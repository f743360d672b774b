package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jfs-fashion/storefront/internal/domain/catalog"
)

// Repository persists cart records by cart id. Load returns an empty slice
// and no error for unknown carts.
type Repository interface {
	Load(ctx context.Context, cartID string) ([]Item, error)
	Save(ctx context.Context, cartID string, items []Item) error
	Delete(ctx context.Context, cartID string) error
}

// Summary is the priced view of a cart returned to callers.
type Summary struct {
	CartID    string
	Items     []Item
	Lines     []Line
	ItemCount int
	Subtotal  decimal.Decimal
	Total     decimal.Decimal
	Savings   decimal.Decimal
}

// Service runs load-mutate-save cycles against a Repository. Every mutation
// is followed by an explicit Save; a failed Save leaves the stored cart as it
// was before the call. Cycles on the same cart id are serialized within the
// process.
type Service struct {
	repo    Repository
	catalog catalog.Repository
	locks   cartLocks
}

// NewService creates a cart Service.
func NewService(repo Repository, products catalog.Repository) *Service {
	return &Service{repo: repo, catalog: products}
}

// Get returns the current cart summary.
func (s *Service) Get(ctx context.Context, cartID string) (*Summary, error) {
	c, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return summarize(cartID, c), nil
}

// Load returns the cart stored under cartID.
func (s *Service) Load(ctx context.Context, cartID string) (*Cart, error) {
	return s.load(ctx, cartID)
}

// AddVariant snapshots the variant from the catalog and adds quantity units
// of it to the cart.
func (s *Service) AddVariant(ctx context.Context, cartID, variantID string, quantity int) (*Summary, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	v, err := s.catalog.GetVariant(ctx, variantID)
	if err != nil {
		return nil, errors.Wrap(err, "get variant")
	}

	return s.mutate(ctx, cartID, func(c *Cart) error {
		c.AddItem(ItemFromVariant(v, quantity))
		return nil
	})
}

// UpdateQuantity sets the quantity of a line.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, variantID string, quantity int) (*Summary, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error {
		return c.UpdateQuantity(variantID, quantity)
	})
}

// RemoveItem drops a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, cartID, variantID string) (*Summary, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error {
		c.RemoveItem(variantID)
		return nil
	})
}

// Clear empties the cart and removes its stored record.
func (s *Service) Clear(ctx context.Context, cartID string) error {
	defer s.locks.lock(cartID)()
	if err := s.repo.Delete(ctx, cartID); err != nil {
		return errors.Wrap(err, "delete cart")
	}
	zctx.From(ctx).Debug("Cart cleared", zap.String("cart_id", cartID))
	return nil
}

func (s *Service) mutate(ctx context.Context, cartID string, fn func(c *Cart) error) (*Summary, error) {
	defer s.locks.lock(cartID)()
	c, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, cartID, c.Items()); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return summarize(cartID, c), nil
}

func (s *Service) load(ctx context.Context, cartID string) (*Cart, error) {
	items, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	return New(items), nil
}

// ItemFromVariant builds a cart line from a catalog variant snapshot.
func ItemFromVariant(v *catalog.VariantDetail, quantity int) Item {
	tiers := make([]Tier, len(v.BulkPricingTiers))
	for i, t := range v.BulkPricingTiers {
		tiers[i] = Tier{MinQuantity: t.MinQuantity, DiscountPercent: t.DiscountPercent}
	}
	return Item{
		ProductID:        v.ProductID,
		VariantID:        v.ID,
		Name:             v.ProductName,
		Image:            v.Image,
		Size:             v.Size,
		Color:            v.Color,
		Price:            v.Price,
		Quantity:         quantity,
		BulkPricingTiers: tiers,
	}
}

func summarize(cartID string, c *Cart) *Summary {
	items := c.Items()
	q := Price(items)
	return &Summary{
		CartID:    cartID,
		Items:     items,
		Lines:     q.Lines,
		ItemCount: c.ItemCount(),
		Subtotal:  q.Subtotal,
		Total:     q.Total,
		Savings:   q.Savings,
	}
}
