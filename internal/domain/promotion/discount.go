package promotion

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply computes the discount rule grants on orderAmount. The result is
// floored at zero, never exceeds orderAmount and is rounded to 2 places.
func Apply(rule *Rule, orderAmount decimal.Decimal) (Discount, error) {
	if rule.MinOrderAmount.IsPositive() && orderAmount.LessThan(rule.MinOrderAmount) {
		return Discount{}, ErrMinimumNotMet
	}

	var amount decimal.Decimal
	switch rule.DiscountType {
	case DiscountPercentage:
		amount = orderAmount.Mul(rule.Value).Div(hundred)
		if rule.MaxDiscount.IsPositive() {
			amount = decimal.Min(amount, rule.MaxDiscount)
		}
	case DiscountFixed:
		amount = rule.Value
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", rule.DiscountType)
	}

	amount = decimal.Min(amount, orderAmount)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	amount = amount.Round(2)

	return Discount{
		Code:    rule.Code,
		Amount:  amount,
		Message: message(rule, amount),
	}, nil
}

func message(rule *Rule, amount decimal.Decimal) string {
	if rule.Description != "" {
		return rule.Description
	}
	if rule.DiscountType == DiscountPercentage {
		return fmt.Sprintf("%s%% off applied", rule.Value.String())
	}
	return fmt.Sprintf("%s off applied", amount.StringFixed(2))
}
