package service

import (
	"context"

	"github.com/efreitasn/finance/internal/domain"
	"github.com/efreitasn/finance/internal/engine"
	"github.com/efreitasn/finance/internal/store"
)

// TradeService handles order submission, trade history, and portfolio
// valuation for a user.
type TradeService struct {
	executor  *engine.Executor
	portfolio *engine.Portfolio
	ledger    store.Ledger
}

// NewTradeService creates a new TradeService with the given dependencies.
func NewTradeService(executor *engine.Executor, portfolio *engine.Portfolio, ledger store.Ledger) *TradeService {
	return &TradeService{
		executor:  executor,
		portfolio: portfolio,
		ledger:    ledger,
	}
}

// Buy parses the share count and executes a market buy.
func (s *TradeService) Buy(ctx context.Context, userID, symbol, rawShares string) (*domain.TradeEvent, error) {
	shares, err := domain.ParseShares(rawShares)
	if err != nil {
		return nil, err
	}
	return s.executor.ExecuteBuy(ctx, userID, symbol, shares)
}

// Sell parses the share count and executes a market sell.
func (s *TradeService) Sell(ctx context.Context, userID, symbol, rawShares string) (*domain.TradeEvent, error) {
	shares, err := domain.ParseShares(rawShares)
	if err != nil {
		return nil, err
	}
	return s.executor.ExecuteSell(ctx, userID, symbol, shares)
}

// History returns every ledger entry for the user in ledger order.
func (s *TradeService) History(ctx context.Context, userID string) ([]*domain.TradeEvent, error) {
	events := make([]*domain.TradeEvent, 0)
	for e, err := range s.ledger.EntriesFor(ctx, userID) {
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// Portfolio values the user's holdings at current prices.
func (s *TradeService) Portfolio(ctx context.Context, userID string) (*domain.Valuation, error) {
	return s.portfolio.Valuate(ctx, userID)
}
