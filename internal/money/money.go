// Package money holds the rounding rule and the company discount. Amounts
// are rounded half away from zero to two places, and only Total rounds.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const Places = 2

var CompanyDiscountFactor = decimal.RequireFromString("0.95")

func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Total is the charged amount for a subtotal.
func Total(subtotal decimal.Decimal, isCompany bool) decimal.Decimal {
	if !isCompany {
		return subtotal
	}
	return Round(subtotal.Mul(CompanyDiscountFactor))
}

func Discount(subtotal, total decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(total)
}

func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// ParsePrice accepts non-negative amounts with at most two decimals.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if err := ValidatePrice(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func ValidatePrice(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("amount %s is negative", d)
	}
	if !d.Equal(Round(d)) {
		return fmt.Errorf("amount %s has more than %d decimals", d, Places)
	}
	return nil
}
