package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/finance/internal/domain"
)

// tradesColumns must match scanTrade.
const tradesColumns = `seq, trade_id, user_id, symbol, shares, price, executed_at`

// SQLiteStore is a durable Store backed by SQLite. The ledger append and the
// cash update of a Commit run in one database transaction.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, &domain.StorageError{Op: "open", Err: err}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser inserts a user, returning domain.ErrUserAlreadyExists if the
// user_id or username is taken.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *domain.User) error {
	err := withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM users WHERE user_id = ? OR username = ? LIMIT 1`,
			u.UserID, u.Username,
		).Scan(&exists)
		if err == nil {
			return domain.ErrUserAlreadyExists
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return &domain.StorageError{Op: "create user", Err: err}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (user_id, username, cash, created_at) VALUES (?, ?, ?, ?)`,
			u.UserID, u.Username, u.Cash.String(), u.CreatedAt.UnixNano(),
		)
		if err != nil {
			return &domain.StorageError{Op: "create user", Err: err}
		}
		return nil
	})
	return storageErr("create user", err)
}

// GetUser returns the user or domain.ErrUserNotFound.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, username, cash, created_at FROM users WHERE user_id = ?`, userID)
	return scanUser(row)
}

// GetUserByName looks a user up by username.
func (s *SQLiteStore) GetUserByName(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, username, cash, created_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u         domain.User
		cash      string
		createdAt int64
	)
	err := row.Scan(&u.UserID, &u.Username, &cash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get user", Err: err}
	}
	u.Cash, err = decimal.NewFromString(cash)
	if err != nil {
		return nil, &domain.StorageError{Op: "get user", Err: fmt.Errorf("corrupt cash %q: %w", cash, err)}
	}
	u.CreatedAt = time.Unix(0, createdAt).UTC()
	return &u, nil
}

// Cash returns the user's current cash balance.
func (s *SQLiteStore) Cash(ctx context.Context, userID string) (decimal.Decimal, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return u.Cash, nil
}

// CompareAndSetCash sets the user's cash to next if it currently equals prev.
func (s *SQLiteStore) CompareAndSetCash(ctx context.Context, userID string, prev, next decimal.Decimal) error {
	err := withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		cash, err := readCash(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !cash.Equal(prev) {
			return domain.ErrCashConflict
		}
		return compareAndWriteCash(ctx, tx, userID, prev, next)
	})
	return storageErr("compare and set cash", err)
}

// Append inserts one event outside of any commit.
func (s *SQLiteStore) Append(ctx context.Context, e *domain.TradeEvent) error {
	err := withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := readCash(ctx, tx, e.UserID); err != nil {
			return err
		}
		return insertTrade(ctx, tx, e)
	})
	return storageErr("append", err)
}

// EntriesFor streams the user's ledger from the database. Rows are read
// lazily and the result set is closed when iteration stops; the loop body
// must not call back into the store.
func (s *SQLiteStore) EntriesFor(ctx context.Context, userID string) iter.Seq2[*domain.TradeEvent, error] {
	return func(yield func(*domain.TradeEvent, error) bool) {
		if _, err := s.GetUser(ctx, userID); err != nil {
			yield(nil, err)
			return
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT `+tradesColumns+` FROM trades WHERE user_id = ? ORDER BY executed_at, seq`, userID)
		if err != nil {
			yield(nil, &domain.StorageError{Op: "entries", Err: err})
			return
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanTrade(rows)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, &domain.StorageError{Op: "entries", Err: err})
		}
	}
}

func scanTrade(rows *sql.Rows) (*domain.TradeEvent, error) {
	var (
		e          domain.TradeEvent
		price      string
		executedAt int64
	)
	if err := rows.Scan(&e.Seq, &e.TradeID, &e.UserID, &e.Symbol, &e.Shares, &price, &executedAt); err != nil {
		return nil, &domain.StorageError{Op: "scan trade", Err: err}
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, &domain.StorageError{Op: "scan trade", Err: fmt.Errorf("corrupt price %q: %w", price, err)}
	}
	e.Price = p
	e.ExecutedAt = time.Unix(0, executedAt).UTC()
	return &e, nil
}

// Commit runs fn inside one database transaction. fn must only use the Tx
// it is given: the store has a single connection and it is held by the
// transaction.
func (s *SQLiteStore) Commit(ctx context.Context, userID string, fn func(Tx) error) error {
	var fnErr error
	err := withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		cash, err := readCash(ctx, tx, userID)
		if err != nil {
			return err
		}

		stx := &sqlTx{ctx: ctx, tx: tx, userID: userID, cash: cash}
		if fnErr = fn(stx); fnErr != nil {
			return fnErr
		}
		if stx.cash.Equal(cash) {
			return nil
		}
		return compareAndWriteCash(ctx, tx, userID, cash, stx.cash)
	})
	if fnErr != nil {
		// Rolled back; nothing fn staged is visible.
		return fnErr
	}
	return storageErr("commit", err)
}

// sqlTx implements Tx on top of a database transaction.
type sqlTx struct {
	ctx    context.Context
	tx     *sql.Tx
	userID string
	cash   decimal.Decimal
}

func (t *sqlTx) Cash() decimal.Decimal {
	return t.cash
}

func (t *sqlTx) SetCash(amount decimal.Decimal) {
	t.cash = amount
}

func (t *sqlTx) Position(symbol string) (int64, error) {
	var n int64
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT COALESCE(SUM(shares), 0) FROM trades WHERE user_id = ? AND symbol = ?`,
		t.userID, symbol,
	).Scan(&n)
	if err != nil {
		return 0, &domain.StorageError{Op: "position", Err: err}
	}
	return n, nil
}

func (t *sqlTx) LastExecutedAt() (time.Time, error) {
	var last sql.NullInt64
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT MAX(executed_at) FROM trades WHERE user_id = ?`, t.userID,
	).Scan(&last)
	if err != nil {
		return time.Time{}, &domain.StorageError{Op: "last executed at", Err: err}
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return time.Unix(0, last.Int64).UTC(), nil
}

func (t *sqlTx) Append(e *domain.TradeEvent) error {
	if e.UserID != t.userID {
		return fmt.Errorf("event for user %q appended in commit for user %q", e.UserID, t.userID)
	}
	return insertTrade(t.ctx, t.tx, e)
}

func readCash(ctx context.Context, tx *sql.Tx, userID string) (decimal.Decimal, error) {
	var cash string
	err := tx.QueryRowContext(ctx, `SELECT cash FROM users WHERE user_id = ?`, userID).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, &domain.StorageError{Op: "read cash", Err: err}
	}
	d, err := decimal.NewFromString(cash)
	if err != nil {
		return decimal.Zero, &domain.StorageError{Op: "read cash", Err: fmt.Errorf("corrupt cash %q: %w", cash, err)}
	}
	return d, nil
}

// compareAndWriteCash updates the stored cash only if it still reads prev.
func compareAndWriteCash(ctx context.Context, tx *sql.Tx, userID string, prev, next decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET cash = ? WHERE user_id = ? AND cash = ?`,
		next.String(), userID, prev.String(),
	)
	if err != nil {
		return &domain.StorageError{Op: "write cash", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "write cash", Err: err}
	}
	if n == 0 {
		return domain.ErrCashConflict
	}
	return nil
}

func insertTrade(ctx context.Context, tx *sql.Tx, e *domain.TradeEvent) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO trades (trade_id, user_id, symbol, shares, price, executed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.TradeID, e.UserID, e.Symbol, e.Shares, e.Price.String(), e.ExecutedAt.UnixNano(),
	)
	if err != nil {
		return &domain.StorageError{Op: "append", Err: err}
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return &domain.StorageError{Op: "append", Err: err}
	}
	e.Seq = seq
	return nil
}

// storageErr passes domain errors through and wraps anything else that
// escaped the transaction helper (begin/commit failures) as a StorageError.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *domain.StorageError
	if errors.As(err, &se) {
		return err
	}
	for _, known := range []error{
		domain.ErrUserNotFound,
		domain.ErrUserAlreadyExists,
		domain.ErrCashConflict,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &domain.StorageError{Op: op, Err: err}
}
