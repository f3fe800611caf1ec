package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/finance/internal/domain"
	"github.com/efreitasn/finance/internal/oracle"
	"github.com/efreitasn/finance/internal/store"
)

// Portfolio derives positions from the ledger and prices them.
type Portfolio struct {
	store  store.Store
	oracle oracle.Oracle
	locks  *UserLocks
	logger *slog.Logger
}

// NewPortfolio creates a Portfolio reading from st and pricing with o.
func NewPortfolio(st store.Store, o oracle.Oracle, locks *UserLocks, logger *slog.Logger) *Portfolio {
	return &Portfolio{
		store:  st,
		oracle: o,
		locks:  locks,
		logger: logger,
	}
}

// ComputePositions folds the user's whole ledger into net share counts per
// symbol. Symbols netting to zero are omitted; negative counts from legacy
// short sales are kept. Repeated calls over an unchanged ledger return equal
// maps.
func (p *Portfolio) ComputePositions(ctx context.Context, userID string) (domain.Positions, error) {
	positions := make(domain.Positions)
	for e, err := range p.store.EntriesFor(ctx, userID) {
		if err != nil {
			return nil, err
		}
		positions.Add(e)
	}
	return positions, nil
}

// Valuate prices every non-zero position at its current quote. A symbol whose
// quote cannot be obtained does not fail the whole valuation: its holding is
// left unpriced with Err wrapping domain.ErrQuoteUnavailable, and the
// valuation is marked Partial.
func (p *Portfolio) Valuate(ctx context.Context, userID string) (*domain.Valuation, error) {
	positions, cash, err := p.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	symbols := positions.Symbols()
	holdings := make([]domain.Holding, len(symbols))

	var wg sync.WaitGroup
	for i, sym := range symbols {
		holdings[i] = domain.Holding{Symbol: sym, Name: sym, Shares: positions[sym]}
		wg.Add(1)
		go func(h *domain.Holding) {
			defer wg.Done()
			p.price(ctx, h)
		}(&holdings[i])
	}
	wg.Wait()

	v := &domain.Valuation{
		UserID:        userID,
		Holdings:      holdings,
		Cash:          cash,
		HoldingsValue: decimal.Zero,
	}
	for _, h := range holdings {
		if h.Value == nil {
			v.Partial = true
			continue
		}
		v.HoldingsValue = v.HoldingsValue.Add(*h.Value)
	}
	v.Total = v.HoldingsValue.Add(cash)
	return v, nil
}

// snapshot reads positions and cash from the same instant: no order for the
// user can commit in between.
func (p *Portfolio) snapshot(ctx context.Context, userID string) (domain.Positions, decimal.Decimal, error) {
	unlock := p.locks.RLock(userID)
	defer unlock()

	positions, err := p.ComputePositions(ctx, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	cash, err := p.store.Cash(ctx, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return positions, cash, nil
}

func (p *Portfolio) price(ctx context.Context, h *domain.Holding) {
	q, err := p.oracle.Quote(ctx, h.Symbol)
	if err == nil && !q.Price.IsPositive() {
		err = fmt.Errorf("non-positive price %s", q.Price)
	}
	if err != nil {
		h.Err = fmt.Errorf("%w: %s: %w", domain.ErrQuoteUnavailable, h.Symbol, err)
		p.logger.Warn("holding left unpriced",
			slog.String("symbol", h.Symbol),
			slog.String("error", err.Error()),
		)
		return
	}

	if q.Name != "" {
		h.Name = q.Name
	}
	price := q.Price
	value := domain.Cost(price, h.Shares)
	h.Price = &price
	h.Value = &value
}
