package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a registered account holder. Cash is mutated only through a
// store commit issued by the order executor.
type User struct {
	UserID    string
	Username  string
	Cash      decimal.Decimal
	CreatedAt time.Time
}
