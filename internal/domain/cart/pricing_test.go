package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectTier(t *testing.T) {
	for _, tt := range []struct {
		Name     string
		Tiers    []Tier
		Quantity int
		Percent  string
		OK       bool
	}{
		{Name: "None", Quantity: 10},
		{Name: "BelowAll", Tiers: tiers(5, "10"), Quantity: 4},
		{Name: "Exact", Tiers: tiers(5, "10"), Quantity: 5, Percent: "10", OK: true},
		{Name: "Highest", Tiers: tiers(5, "10", 10, "20"), Quantity: 12, Percent: "20", OK: true},
		{Name: "Middle", Tiers: tiers(5, "10", 10, "20", 20, "30"), Quantity: 15, Percent: "20", OK: true},
		{Name: "TieKeepsAuthoredOrder", Tiers: tiers(5, "10", 5, "15"), Quantity: 6, Percent: "10", OK: true},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			tier, ok := SelectTier(tt.Tiers, tt.Quantity)
			require.Equal(t, tt.OK, ok)
			if ok {
				assert.True(t, d(tt.Percent).Equal(tier.DiscountPercent))
			}
		})
	}
}

func TestSelectTier_DoesNotReorderInput(t *testing.T) {
	in := tiers(5, "10", 10, "20")
	_, _ = SelectTier(in, 12)
	assert.Equal(t, 5, in[0].MinQuantity)
}

func TestPrice(t *testing.T) {
	q := Price([]Item{
		item("p1", "v1", "1000", 3, tiers(5, "10")),
		item("p1", "v2", "1200", 3, tiers(5, "10")),
		item("p2", "v3", "500", 1, nil),
	})

	require.Len(t, q.Lines, 3)
	assert.True(t, d("900").Equal(q.Lines[0].EffectiveUnitPrice))
	assert.True(t, d("2700").Equal(q.Lines[0].LineTotal))
	require.NotNil(t, q.Lines[1].Tier)
	assert.Equal(t, 5, q.Lines[1].Tier.MinQuantity)
	assert.Nil(t, q.Lines[2].Tier)
	assert.True(t, d("500").Equal(q.Lines[2].LineTotal))

	assert.True(t, d("7100").Equal(q.Subtotal), q.Subtotal.String())
	assert.True(t, d("6440").Equal(q.Total), q.Total.String())
	assert.True(t, d("660").Equal(q.Savings), q.Savings.String())
}

func TestPrice_Malformed(t *testing.T) {
	q := Price([]Item{
		item("p1", "v1", "100", 0, tiers(0, "10")),
		item("p2", "v2", "100", 2, tiers(-1, "0")),
	})
	assert.True(t, d("200").Equal(q.Total))
	assert.True(t, q.Savings.IsZero())
}

func TestDiscountedPrice(t *testing.T) {
	assert.True(t, d("7.5").Equal(DiscountedPrice(d("10"), d("25"))))
	assert.True(t, d("10").Equal(DiscountedPrice(d("10"), d("0"))))
	assert.True(t, d("0").Equal(DiscountedPrice(d("10"), d("100"))))
}
