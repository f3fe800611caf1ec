package store

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/finance/internal/domain"
)

// ledgerLess orders events by ExecutedAt, then by insertion sequence.
func ledgerLess(a, b *domain.TradeEvent) bool {
	return a.Before(b)
}

// account is one user's cash balance and ledger. mu guards both, so a
// commit that touches the two is applied as a unit.
type account struct {
	mu     sync.RWMutex
	user   domain.User
	events *btree.BTreeG[*domain.TradeEvent]
}

// MemoryStore is a thread-safe in-memory Store, keyed by user_id.
// Each user's ledger is kept in a B-tree in ledger order.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*account
	byName   map[string]string // username → user_id
	seq      atomic.Int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*account),
		byName:   make(map[string]string),
	}
}

// CreateUser adds a user. It returns domain.ErrUserAlreadyExists if the
// user_id or username is taken.
func (s *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[u.UserID]; exists {
		return domain.ErrUserAlreadyExists
	}
	if _, exists := s.byName[u.Username]; exists {
		return domain.ErrUserAlreadyExists
	}
	const degree = 32
	s.accounts[u.UserID] = &account{
		user:   *u,
		events: btree.NewG[*domain.TradeEvent](degree, ledgerLess),
	}
	s.byName[u.Username] = u.UserID
	return nil
}

func (s *MemoryStore) get(userID string) (*account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return a, nil
}

// GetUser returns a copy of the user. It returns domain.ErrUserNotFound if
// the user does not exist.
func (s *MemoryStore) GetUser(_ context.Context, userID string) (*domain.User, error) {
	a, err := s.get(userID)
	if err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	u := a.user
	return &u, nil
}

// GetUserByName looks a user up by username.
func (s *MemoryStore) GetUserByName(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	id, ok := s.byName[username]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return s.GetUser(ctx, id)
}

// Cash returns the user's current cash balance.
func (s *MemoryStore) Cash(ctx context.Context, userID string) (decimal.Decimal, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return u.Cash, nil
}

// CompareAndSetCash sets the user's cash to next if it currently equals prev.
func (s *MemoryStore) CompareAndSetCash(_ context.Context, userID string, prev, next decimal.Decimal) error {
	a, err := s.get(userID)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.compareAndSetCash(prev, next)
}

// compareAndSetCash requires a.mu held for writing.
func (a *account) compareAndSetCash(prev, next decimal.Decimal) error {
	if !a.user.Cash.Equal(prev) {
		return domain.ErrCashConflict
	}
	a.user.Cash = next
	return nil
}

// Append adds one event to its user's ledger.
func (s *MemoryStore) Append(_ context.Context, e *domain.TradeEvent) error {
	a, err := s.get(e.UserID)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	s.insert(a, e)
	return nil
}

// insert assigns the next sequence number and stores a private copy of e.
// The caller must hold a.mu for writing.
func (s *MemoryStore) insert(a *account, e *domain.TradeEvent) {
	e.Seq = s.seq.Add(1)
	stored := *e
	a.events.ReplaceOrInsert(&stored)
}

// EntriesFor yields a snapshot of the user's ledger taken when iteration
// starts. Events are copies; mutating them does not affect the store.
func (s *MemoryStore) EntriesFor(ctx context.Context, userID string) iter.Seq2[*domain.TradeEvent, error] {
	return func(yield func(*domain.TradeEvent, error) bool) {
		a, err := s.get(userID)
		if err != nil {
			yield(nil, err)
			return
		}

		a.mu.RLock()
		snapshot := make([]*domain.TradeEvent, 0, a.events.Len())
		a.events.Ascend(func(e *domain.TradeEvent) bool {
			snapshot = append(snapshot, e)
			return true
		})
		a.mu.RUnlock()

		for _, e := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			c := *e
			if !yield(&c, nil) {
				return
			}
		}
	}
}

// Commit runs fn with the user's account locked and applies the staged
// events and cash together once fn succeeds.
func (s *MemoryStore) Commit(ctx context.Context, userID string, fn func(Tx) error) error {
	a, err := s.get(userID)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	prev := a.user.Cash
	tx := &memTx{account: a, userID: userID, cash: prev}
	if err := fn(tx); err != nil {
		return err
	}

	if err := a.compareAndSetCash(prev, tx.cash); err != nil {
		return err
	}
	for _, e := range tx.pending {
		s.insert(a, e)
	}
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// memTx stages changes for MemoryStore.Commit.
type memTx struct {
	account *account
	userID  string
	cash    decimal.Decimal
	pending []*domain.TradeEvent
}

func (tx *memTx) Cash() decimal.Decimal {
	return tx.cash
}

func (tx *memTx) SetCash(amount decimal.Decimal) {
	tx.cash = amount
}

// Position sums the committed ledger and any events staged in this tx.
func (tx *memTx) Position(symbol string) (int64, error) {
	var n int64
	tx.account.events.Ascend(func(e *domain.TradeEvent) bool {
		if e.Symbol == symbol {
			n += e.Shares
		}
		return true
	})
	for _, e := range tx.pending {
		if e.Symbol == symbol {
			n += e.Shares
		}
	}
	return n, nil
}

func (tx *memTx) LastExecutedAt() (time.Time, error) {
	var last time.Time
	if e, ok := tx.account.events.Max(); ok {
		last = e.ExecutedAt
	}
	for _, e := range tx.pending {
		if e.ExecutedAt.After(last) {
			last = e.ExecutedAt
		}
	}
	return last, nil
}

func (tx *memTx) Append(e *domain.TradeEvent) error {
	if e.UserID != tx.userID {
		return fmt.Errorf("event for user %q appended in commit for user %q", e.UserID, tx.userID)
	}
	tx.pending = append(tx.pending, e)
	return nil
}
