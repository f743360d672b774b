package cart

import (
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidQuantity is returned when a quantity update would leave a line
// item with fewer than one unit.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Tier is a bulk pricing breakpoint: once the combined quantity of a product
// reaches MinQuantity, DiscountPercent is taken off its unit price.
type Tier struct {
	MinQuantity     int
	DiscountPercent decimal.Decimal
}

// Item is a single product variant placed in the cart. Display attributes and
// Price are snapshots taken when the variant was added.
type Item struct {
	ProductID        string
	VariantID        string
	Name             string
	Image            string
	Size             string
	Color            string
	Price            decimal.Decimal
	Quantity         int
	BulkPricingTiers []Tier
}

// Cart holds line items keyed by variant. The zero value is an empty cart.
//
// A Cart is not safe for concurrent use; callers own it for the duration of a
// load-mutate-save cycle.
type Cart struct {
	items []Item
}

// New returns a cart holding a copy of items.
func New(items []Item) *Cart {
	return &Cart{items: slices.Clone(items)}
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []Item {
	return slices.Clone(c.items)
}

// Len returns the number of distinct line items.
func (c *Cart) Len() int {
	return len(c.items)
}

// Item returns the line item for variantID.
func (c *Cart) Item(variantID string) (Item, bool) {
	if i := c.index(variantID); i >= 0 {
		return c.items[i], true
	}
	return Item{}, false
}

// AddItem merges item into the cart. An existing line with the same variant
// has its quantity increased by item.Quantity and its tiers refreshed when
// item carries any; otherwise item is appended.
func (c *Cart) AddItem(item Item) {
	if i := c.index(item.VariantID); i >= 0 {
		c.items[i].Quantity += item.Quantity
		if len(item.BulkPricingTiers) > 0 {
			c.items[i].BulkPricingTiers = slices.Clone(item.BulkPricingTiers)
		}
		return
	}
	item.BulkPricingTiers = slices.Clone(item.BulkPricingTiers)
	c.items = append(c.items, item)
}

// RemoveItem deletes the line for variantID. Unknown variants are ignored.
func (c *Cart) RemoveItem(variantID string) {
	c.items = slices.DeleteFunc(c.items, func(it Item) bool {
		return it.VariantID == variantID
	})
}

// UpdateQuantity sets the quantity of the line for variantID. Quantities below
// one are rejected with ErrInvalidQuantity and leave the cart untouched; use
// RemoveItem to drop a line. Unknown variants are ignored.
func (c *Cart) UpdateQuantity(variantID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if i := c.index(variantID); i >= 0 {
		c.items[i].Quantity = quantity
	}
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// ItemCount returns the sum of all line quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Subtotal returns the undiscounted total, rounded to 2 decimal places.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum.Round(2)
}

// Total returns the grand total after bulk pricing tiers are applied.
// See Price for the algorithm.
func (c *Cart) Total() decimal.Decimal {
	return Price(c.items).Total
}

func (c *Cart) index(variantID string) int {
	return slices.IndexFunc(c.items, func(it Item) bool {
		return it.VariantID == variantID
	})
}
