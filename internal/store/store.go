package store

import (
	"context"
	"iter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/finance/internal/domain"
)

// Ledger is the append-only log of trade events. There is no update or
// delete.
type Ledger interface {
	// Append durably persists one event and assigns its Seq. It never
	// partially writes; I/O failures are reported as *domain.StorageError.
	Append(ctx context.Context, e *domain.TradeEvent) error

	// EntriesFor returns a lazy, finite sequence of the user's events
	// ordered by ExecutedAt then Seq. Every call starts a fresh pass over
	// the durable state.
	EntriesFor(ctx context.Context, userID string) iter.Seq2[*domain.TradeEvent, error]
}

// Accounts holds users and their cash balances.
type Accounts interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByName(ctx context.Context, username string) (*domain.User, error)
	Cash(ctx context.Context, userID string) (decimal.Decimal, error)

	// CompareAndSetCash replaces the user's cash with next only if it
	// currently equals prev; otherwise it returns domain.ErrCashConflict.
	// Commit applies its cash update through the same check.
	CompareAndSetCash(ctx context.Context, userID string, prev, next decimal.Decimal) error
}

// Tx is one user's account and ledger as seen inside a Commit. Appended
// events and the cash update become visible together when the commit
// function returns nil, and not at all otherwise.
type Tx interface {
	Cash() decimal.Decimal
	Position(symbol string) (int64, error)

	// LastExecutedAt is the latest ExecutedAt in the user's ledger, or the
	// zero time for an empty ledger.
	LastExecutedAt() (time.Time, error)

	Append(e *domain.TradeEvent) error
	SetCash(amount decimal.Decimal)
}

// Store combines the ledger and account stores with an atomic commit
// boundary spanning both.
type Store interface {
	Ledger
	Accounts

	// Commit runs fn against the user's state and applies everything it
	// staged atomically. It returns domain.ErrUserNotFound for an unknown
	// user, fn's error unchanged, or a *domain.StorageError.
	Commit(ctx context.Context, userID string, fn func(Tx) error) error

	Close() error
}
