package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var symbolRegex = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

// NormalizeSymbol trims and upper-cases a ticker symbol. It returns
// ErrInvalidSymbol if the result is empty or not a plausible ticker.
func NormalizeSymbol(s string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	if sym == "" {
		return "", fmt.Errorf("%w: must provide a symbol", ErrInvalidSymbol)
	}
	if !symbolRegex.MatchString(sym) {
		return "", fmt.Errorf("%w: %q is not a ticker symbol", ErrInvalidSymbol, s)
	}
	return sym, nil
}

// ParseShares parses a share count. Only positive whole numbers are
// accepted; fractional, zero, negative and non-numeric input fail with
// ErrInvalidQuantity.
func ParseShares(s string) (int64, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if d, derr := decimal.NewFromString(s); derr == nil && !d.IsInteger() {
			return 0, fmt.Errorf("%w: fractional shares are not allowed, got %s", ErrInvalidQuantity, s)
		}
		return 0, fmt.Errorf("%w: shares must be a whole number, got %q", ErrInvalidQuantity, s)
	}
	if err := ValidateShares(n); err != nil {
		return 0, err
	}
	return n, nil
}

// ValidateShares returns ErrInvalidQuantity unless n is positive.
func ValidateShares(n int64) error {
	if n <= 0 {
		return fmt.Errorf("%w: shares must be a positive integer, got %d", ErrInvalidQuantity, n)
	}
	return nil
}
