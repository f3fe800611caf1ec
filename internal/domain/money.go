package domain

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ParseCash parses a user-supplied dollar amount. It rejects malformed input
// and amounts with more than 2 decimal places.
func ParseCash(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("monetary values must be decimal numbers, got %q", s)
	}
	if !d.Equal(d.Truncate(2)) {
		return decimal.Zero, fmt.Errorf("monetary values must have at most 2 decimal places")
	}
	return d, nil
}

// Cost returns price × shares. The result is exact; no rounding is applied.
func Cost(price decimal.Decimal, shares int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(shares))
}

// FormatUSD renders an amount for display, e.g. "$9,740.00". Amounts are
// rounded half away from zero to whole cents; stored values are never rounded.
func FormatUSD(d decimal.Decimal) string {
	cents := d.Shift(2).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}
