package promotion

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator checks a promo code against an order amount.
type Validator interface {
	Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*Discount, error)
}

// Redeemer records that a validated promo code was used by a placed order.
type Redeemer interface {
	Redeem(ctx context.Context, code string) error
}

// RepoValidator implements Validator and Redeemer on top of a Repository.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the rule for code, checks its time window and usage
// limit, and applies it to orderAmount. Validation does not consume a use;
// call Redeem once the order is placed.
func (v *RepoValidator) Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*Discount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidCode
	}

	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return nil, ErrInvalidCode
		}
		return nil, errors.Wrap(err, "lookup promotion")
	}

	now := v.now()
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return nil, ErrExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return nil, ErrExpired
	}
	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return nil, ErrUsageLimitReached
	}

	d, err := Apply(rule, orderAmount)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Redeem increments the usage counter of code.
func (v *RepoValidator) Redeem(ctx context.Context, code string) error {
	if err := v.repo.IncrementUses(ctx, strings.TrimSpace(code)); err != nil {
		return errors.Wrap(err, "increment promotion uses")
	}
	return nil
}
