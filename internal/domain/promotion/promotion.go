package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported promotion discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage off the order amount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount off, capped at the order amount.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrInvalidCode is returned when a promo code is unknown or inactive.
	ErrInvalidCode = errors.New("invalid promo code")
	// ErrExpired is returned when a promo code is outside its valid window.
	ErrExpired = errors.New("promo code expired")
	// ErrUsageLimitReached is returned when a promo code has no uses left.
	ErrUsageLimitReached = errors.New("promo code usage limit reached")
	// ErrMinimumNotMet is returned when the order amount is below the
	// promotion's minimum.
	ErrMinimumNotMet = errors.New("order amount below promo minimum")
)

// Rule defines a promotion's discount and eligibility constraints.
type Rule struct {
	Code           string
	DiscountType   DiscountType
	Value          decimal.Decimal
	Description    string
	MinOrderAmount decimal.Decimal
	// MaxDiscount caps percentage discounts; zero means uncapped.
	MaxDiscount decimal.Decimal
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	// MaxUses of zero means unlimited.
	MaxUses int
	Uses    int
}

// Discount is the outcome of validating a promo code against an order amount.
type Discount struct {
	Code    string
	Amount  decimal.Decimal
	Message string
}

// Repository provides lookup and usage tracking of promotion rules.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	IncrementUses(ctx context.Context, code string) error
}
