package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/finance/internal/domain"
	"github.com/efreitasn/finance/internal/oracle"
	"github.com/efreitasn/finance/internal/store"
)

// Executor validates and commits market buy and sell orders. Each order is
// one serializable unit per user: the price read, the cash/position checks,
// the ledger append and the cash update all happen under the user's lock,
// and the last three inside a single store commit.
type Executor struct {
	store           store.Store
	oracle          oracle.Oracle
	locks           *UserLocks
	logger          *slog.Logger
	allowShortSales bool
	now             func() time.Time
}

// NewExecutor creates an Executor. With allowShortSales set, sells are not
// checked against the current position and may drive it negative.
func NewExecutor(
	st store.Store,
	o oracle.Oracle,
	locks *UserLocks,
	logger *slog.Logger,
	allowShortSales bool,
) *Executor {
	return &Executor{
		store:           st,
		oracle:          o,
		locks:           locks,
		logger:          logger,
		allowShortSales: allowShortSales,
		now:             time.Now,
	}
}

// ExecuteBuy buys shares of symbol at the current price and debits the
// user's cash by exactly price × shares. It fails with
// domain.ErrInvalidQuantity, domain.ErrInvalidSymbol or
// domain.ErrInsufficientFunds without changing any state.
func (x *Executor) ExecuteBuy(ctx context.Context, userID, symbol string, shares int64) (*domain.TradeEvent, error) {
	return x.execute(ctx, userID, symbol, shares, domain.SideBuy)
}

// ExecuteSell sells shares of symbol at the current price and credits the
// user's cash by exactly price × shares. Unless short sales are allowed it
// fails with domain.ErrInsufficientShares when the user holds fewer shares.
func (x *Executor) ExecuteSell(ctx context.Context, userID, symbol string, shares int64) (*domain.TradeEvent, error) {
	return x.execute(ctx, userID, symbol, shares, domain.SideSell)
}

func (x *Executor) execute(ctx context.Context, userID, symbol string, shares int64, side domain.Side) (*domain.TradeEvent, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateShares(shares); err != nil {
		return nil, err
	}
	if _, err := x.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	unlock := x.locks.Lock(userID)
	defer unlock()

	quote, err := oracle.Resolve(ctx, x.oracle, sym)
	if err != nil {
		x.reject(userID, sym, shares, side, err)
		return nil, err
	}

	event := &domain.TradeEvent{
		TradeID:    uuid.New().String(),
		UserID:     userID,
		Symbol:     sym,
		Price:      quote.Price,
		ExecutedAt: x.now(),
	}
	amount := domain.Cost(quote.Price, shares)

	err = x.store.Commit(ctx, userID, func(tx store.Tx) error {
		// ExecutedAt never goes backwards within a user's ledger, so a wall
		// clock stepping back cannot reorder history.
		last, err := tx.LastExecutedAt()
		if err != nil {
			return err
		}
		if event.ExecutedAt.Before(last) {
			event.ExecutedAt = last
		}

		cash := tx.Cash()
		held, err := tx.Position(sym)
		if err != nil {
			return err
		}

		if side == domain.SideBuy {
			if held > math.MaxInt64-shares {
				return fmt.Errorf("%w: buying %d %s on top of %d held exceeds the maximum position",
					domain.ErrInvalidQuantity, shares, sym, held)
			}
			if cash.LessThan(amount) {
				return fmt.Errorf("%w: %d %s at %s costs %s, available cash is %s",
					domain.ErrInsufficientFunds, shares, sym,
					domain.FormatUSD(quote.Price), domain.FormatUSD(amount), domain.FormatUSD(cash))
			}
			event.Shares = shares
			tx.SetCash(cash.Sub(amount))
			return tx.Append(event)
		}

		if !x.allowShortSales && held < shares {
			return fmt.Errorf("%w: cannot sell %d %s, %d held", domain.ErrInsufficientShares, shares, sym, held)
		}
		if held < math.MinInt64+shares {
			return fmt.Errorf("%w: selling %d %s against %d held exceeds the maximum short position",
				domain.ErrInvalidQuantity, shares, sym, held)
		}
		event.Shares = -shares
		tx.SetCash(cash.Add(amount))
		return tx.Append(event)
	})
	if err != nil {
		x.reject(userID, sym, shares, side, err)
		return nil, err
	}

	x.logger.Info("order committed",
		slog.String("user_id", userID),
		slog.String("trade_id", event.TradeID),
		slog.String("side", string(side)),
		slog.String("symbol", sym),
		slog.Int64("shares", shares),
		slog.String("price", quote.Price.String()),
	)
	return event, nil
}

func (x *Executor) reject(userID, sym string, shares int64, side domain.Side, err error) {
	level := slog.LevelInfo
	if errors.Is(err, domain.ErrStorage) || errors.Is(err, domain.ErrOracleTransport) {
		level = slog.LevelError
	}
	x.logger.Log(context.Background(), level, "order rejected",
		slog.String("user_id", userID),
		slog.String("side", string(side)),
		slog.String("symbol", sym),
		slog.Int64("shares", shares),
		slog.String("error", err.Error()),
	)
}
