// Package oracle provides price lookups for ticker symbols.
//
// An Oracle returns domain.ErrSymbolNotFound when the symbol does not exist.
// Every other error is a transport failure and may be retried.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/efreitasn/finance/internal/domain"
)

// Oracle looks up the current quote for a symbol. Implementations must be
// safe for concurrent use and free of side effects.
type Oracle interface {
	Quote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, symbol string) (*domain.Quote, error)

// Quote calls f.
func (f Func) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	return f(ctx, symbol)
}

// Resolve looks up symbol and classifies the outcome for callers that act on
// the price: not-found becomes domain.ErrInvalidSymbol, and every other
// failure, including a non-positive price, is a *domain.OracleTransportError.
func Resolve(ctx context.Context, o Oracle, symbol string) (*domain.Quote, error) {
	q, err := o.Quote(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrSymbolNotFound) {
			return nil, fmt.Errorf("%w: %s could not be resolved", domain.ErrInvalidSymbol, symbol)
		}
		var te *domain.OracleTransportError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, &domain.OracleTransportError{Symbol: symbol, Attempts: 1, Err: err}
	}
	if !q.Price.IsPositive() {
		return nil, &domain.OracleTransportError{
			Symbol:   symbol,
			Attempts: 1,
			Err:      fmt.Errorf("non-positive price %s", q.Price),
		}
	}
	return q, nil
}
