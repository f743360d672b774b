package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPromotionRepo struct {
	rule          *Rule
	err           error
	incrementErr  error
	incrementCode string
}

func (m *mockPromotionRepo) FindByCode(_ context.Context, _ string) (*Rule, error) {
	return m.rule, m.err
}

func (m *mockPromotionRepo) IncrementUses(_ context.Context, code string) error {
	m.incrementCode = code
	return m.incrementErr
}

func TestRepoValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name       string
		repo       *mockPromotionRepo
		code       string
		amount     decimal.Decimal
		wantAmount decimal.Decimal
		wantErr    error
	}{
		{
			name: "valid code returns discount",
			repo: &mockPromotionRepo{rule: &Rule{
				Code:         "SAVE10",
				DiscountType: DiscountPercentage,
				Value:        decimal.NewFromInt(10),
			}},
			code:       "SAVE10",
			amount:     decimal.NewFromInt(20000),
			wantAmount: decimal.NewFromInt(2000),
		},
		{
			name:    "blank code is invalid",
			repo:    &mockPromotionRepo{},
			code:    "   ",
			amount:  decimal.NewFromInt(100),
			wantErr: ErrInvalidCode,
		},
		{
			name:    "unknown code",
			repo:    &mockPromotionRepo{err: ErrInvalidCode},
			code:    "BOGUS",
			amount:  decimal.NewFromInt(100),
			wantErr: ErrInvalidCode,
		},
		{
			name: "expired",
			repo: &mockPromotionRepo{rule: &Rule{
				Code:         "OLD",
				DiscountType: DiscountFixed,
				Value:        decimal.NewFromInt(500),
				ValidUntil:   &pastTime,
			}},
			code:    "OLD",
			amount:  decimal.NewFromInt(1000),
			wantErr: ErrExpired,
		},
		{
			name: "not yet valid",
			repo: &mockPromotionRepo{rule: &Rule{
				Code:         "SOON",
				DiscountType: DiscountFixed,
				Value:        decimal.NewFromInt(500),
				ValidFrom:    &futureTime,
			}},
			code:    "SOON",
			amount:  decimal.NewFromInt(1000),
			wantErr: ErrExpired,
		},
		{
			name: "usage limit reached",
			repo: &mockPromotionRepo{rule: &Rule{
				Code:         "LIMITED",
				DiscountType: DiscountFixed,
				Value:        decimal.NewFromInt(500),
				MaxUses:      10,
				Uses:         10,
			}},
			code:    "LIMITED",
			amount:  decimal.NewFromInt(1000),
			wantErr: ErrUsageLimitReached,
		},
		{
			name: "unlimited uses",
			repo: &mockPromotionRepo{rule: &Rule{
				Code:         "FOREVER",
				DiscountType: DiscountFixed,
				Value:        decimal.NewFromInt(500),
				Uses:         9999,
			}},
			code:       "FOREVER",
			amount:     decimal.NewFromInt(1000),
			wantAmount: decimal.NewFromInt(500),
		},
		{
			name: "inside validity window",
			repo: &mockPromotionRepo{rule: &Rule{
				Code:         "WINDOW",
				DiscountType: DiscountPercentage,
				Value:        decimal.NewFromInt(20),
				ValidFrom:    &pastTime,
				ValidUntil:   &futureTime,
			}},
			code:       "WINDOW",
			amount:     decimal.NewFromInt(1000),
			wantAmount: decimal.NewFromInt(200),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewRepoValidator(tt.repo)
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), tt.code, tt.amount)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			assert.True(t, tt.wantAmount.Equal(got.Amount),
				"expected amount %s, got %s", tt.wantAmount, got.Amount)
			assert.Empty(t, tt.repo.incrementCode, "validation must not consume a use")
		})
	}
}

func TestRepoValidator_LookupError(t *testing.T) {
	v := NewRepoValidator(&mockPromotionRepo{err: errors.New("db down")})

	_, err := v.Validate(context.Background(), "ANY", decimal.NewFromInt(1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCode)
	assert.Contains(t, err.Error(), "lookup promotion")
}

func TestRepoValidator_Redeem(t *testing.T) {
	repo := &mockPromotionRepo{}
	v := NewRepoValidator(repo)

	require.NoError(t, v.Redeem(context.Background(), " SAVE10 "))
	assert.Equal(t, "SAVE10", repo.incrementCode)

	repo.incrementErr = errors.New("db error")
	err := v.Redeem(context.Background(), "SAVE10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "increment promotion uses")
}
