package cart

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line is the priced form of a single cart item.
type Line struct {
	VariantID string
	ProductID string
	Quantity  int
	// UnitPrice is the stored snapshot price.
	UnitPrice decimal.Decimal
	// EffectiveUnitPrice is UnitPrice after the applied tier, if any.
	EffectiveUnitPrice decimal.Decimal
	// Tier is the bulk pricing tier applied to this line, nil when none qualifies.
	Tier *Tier
	// LineTotal is EffectiveUnitPrice * Quantity, unrounded.
	LineTotal decimal.Decimal
}

// Quote is the result of pricing a set of items.
type Quote struct {
	Lines []Line
	// Subtotal is the sum of undiscounted line totals, rounded to 2 places.
	Subtotal decimal.Decimal
	// Total is the sum of discounted line totals, rounded to 2 places once
	// after summation.
	Total decimal.Decimal
	// Savings is Subtotal - Total.
	Savings decimal.Decimal
}

// Price computes the bulk-discounted total for items.
//
// Quantities are first summed per product so that different sizes and colors
// of the same product count towards one threshold. Each line then takes the
// single highest tier whose MinQuantity is met by its product total; tiers do
// not stack. Price never fails: malformed tiers or quantities produce a
// numerically valid result.
func Price(items []Item) Quote {
	perProduct := make(map[string]int, len(items))
	for _, it := range items {
		perProduct[it.ProductID] += it.Quantity
	}

	q := Quote{
		Lines:    make([]Line, 0, len(items)),
		Subtotal: decimal.Zero,
		Total:    decimal.Zero,
	}
	for _, it := range items {
		qty := decimal.NewFromInt(int64(it.Quantity))
		line := Line{
			VariantID:          it.VariantID,
			ProductID:          it.ProductID,
			Quantity:           it.Quantity,
			UnitPrice:          it.Price,
			EffectiveUnitPrice: it.Price,
		}
		if tier, ok := SelectTier(it.BulkPricingTiers, perProduct[it.ProductID]); ok {
			line.Tier = &tier
			line.EffectiveUnitPrice = DiscountedPrice(it.Price, tier.DiscountPercent)
		}
		line.LineTotal = line.EffectiveUnitPrice.Mul(qty)

		q.Subtotal = q.Subtotal.Add(it.Price.Mul(qty))
		q.Total = q.Total.Add(line.LineTotal)
		q.Lines = append(q.Lines, line)
	}

	q.Subtotal = q.Subtotal.Round(2)
	q.Total = q.Total.Round(2)
	q.Savings = q.Subtotal.Sub(q.Total)
	return q
}

// SelectTier returns the tier with the highest MinQuantity not exceeding
// quantity. Tiers sharing a MinQuantity keep their authored order.
func SelectTier(tiers []Tier, quantity int) (Tier, bool) {
	if len(tiers) == 0 {
		return Tier{}, false
	}
	sorted := slices.Clone(tiers)
	slices.SortStableFunc(sorted, func(a, b Tier) int {
		return cmp.Compare(b.MinQuantity, a.MinQuantity)
	})
	for _, t := range sorted {
		if t.MinQuantity <= quantity {
			return t, true
		}
	}
	return Tier{}, false
}

// DiscountedPrice returns price * (1 - percent/100).
func DiscountedPrice(price, percent decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Sub(percent.Div(hundred)))
}
