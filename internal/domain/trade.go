package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side indicates whether a trade event bought or sold shares.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradeEvent is one immutable ledger entry. Shares is signed: positive for
// a buy, negative for a sell.
type TradeEvent struct {
	TradeID    string
	Seq        int64 // assigned by the store on append
	UserID     string
	Symbol     string
	Shares     int64
	Price      decimal.Decimal // unit price at execution
	ExecutedAt time.Time
}

// Side derives the trade direction from the sign of Shares.
func (e *TradeEvent) Side() Side {
	if e.Shares < 0 {
		return SideSell
	}
	return SideBuy
}

// Amount is the signed cash effect of the event on the user's balance:
// negative for a buy, positive for a sell.
func (e *TradeEvent) Amount() decimal.Decimal {
	return Cost(e.Price, -e.Shares)
}

// Before reports whether e sorts before other in ledger order: by
// ExecutedAt, then by insertion sequence.
func (e *TradeEvent) Before(other *TradeEvent) bool {
	if !e.ExecutedAt.Equal(other.ExecutedAt) {
		return e.ExecutedAt.Before(other.ExecutedAt)
	}
	return e.Seq < other.Seq
}
