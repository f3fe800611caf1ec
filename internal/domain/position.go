package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Positions maps symbol → net share count.
type Positions map[string]int64

// Add folds one ledger entry into the positions. Symbols whose net count
// returns to zero are removed.
func (p Positions) Add(e *TradeEvent) {
	n := p[e.Symbol] + e.Shares
	if n == 0 {
		delete(p, e.Symbol)
		return
	}
	p[e.Symbol] = n
}

// Symbols returns the held symbols in ascending order.
func (p Positions) Symbols() []string {
	out := make([]string, 0, len(p))
	for sym := range p {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Holding is a priced position in a valuation. Price and Value are nil when
// the quote could not be obtained; Err then carries the reason.
type Holding struct {
	Symbol string
	Name   string
	Shares int64
	Price  *decimal.Decimal
	Value  *decimal.Decimal
	Err    error
}

// Valuation is a point-in-time view of a user's portfolio.
type Valuation struct {
	UserID        string
	Holdings      []Holding // sorted by symbol
	Cash          decimal.Decimal
	HoldingsValue decimal.Decimal // sum of priced holdings only
	Total         decimal.Decimal // HoldingsValue + Cash
	Partial       bool            // true if any holding is unpriced
}
