package domain

import "github.com/shopspring/decimal"

// Quote is a transient price lookup result. It is never persisted.
type Quote struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
}
