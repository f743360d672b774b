package main

import (
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfs-fashion/storefront/internal/domain/promotion"
)

func TestParseSeed_BundledFile(t *testing.T) {
	data, err := os.ReadFile("../../db/seed/catalog.json")
	require.NoError(t, err)

	seed, err := parseSeed(data)
	require.NoError(t, err)
	require.Len(t, seed.products, 3)
	assert.Len(t, seed.zones, 4)
	assert.Len(t, seed.promotions, 2)

	shirt := seed.products[0]
	assert.Equal(t, "prod-ankara-shirt", shirt.ID)
	require.Len(t, shirt.BulkPricingTiers, 3)
	assert.True(t, decimal.NewFromInt(15).Equal(shirt.BulkPricingTiers[1].DiscountPercent))
	for _, v := range shirt.Variants {
		assert.Equal(t, shirt.ID, v.ProductID)
	}
	assert.True(t, decimal.RequireFromString("7500.50").Equal(seed.products[2].Variants[0].Price))
	assert.Equal(t, promotion.DiscountFixed, seed.promotions[1].DiscountType)
}

func TestParseSeed_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"Malformed", `{"products": [`, "parse seed JSON"},
		{"MissingSlug", `{"products": [{"id": "p1", "name": "Shirt"}]}`, "id and slug are required"},
		{"ZeroTier", `{"products": [{"id": "p1", "slug": "s", "bulkPricingTiers": [{"minQuantity": 0, "discountPercent": 5}]}]}`, "minQuantity"},
		{"UnknownDiscount", `{"promotions": [{"code": "X", "discountType": "bogo", "value": 1}]}`, "unknown discount type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSeed([]byte(tt.data))
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
