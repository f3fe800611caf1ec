package service

import (
	"context"

	"github.com/efreitasn/finance/internal/domain"
	"github.com/efreitasn/finance/internal/oracle"
)

// QuoteService looks up current prices.
type QuoteService struct {
	oracle oracle.Oracle
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(o oracle.Oracle) *QuoteService {
	return &QuoteService{oracle: o}
}

// Lookup returns the current quote for symbol. Unknown or malformed symbols
// fail with domain.ErrInvalidSymbol.
func (s *QuoteService) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return oracle.Resolve(ctx, s.oracle, sym)
}
