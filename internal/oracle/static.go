package oracle

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/finance/internal/domain"
)

// Static is an in-memory quote table. It is used for local runs and tests;
// prices change only when Set is called.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
}

var _ Oracle = (*Static)(nil)

// NewStatic creates an empty Static oracle.
func NewStatic() *Static {
	return &Static{
		quotes: make(map[string]domain.Quote),
	}
}

// ParseStatic builds a Static oracle from a comma-separated list of
// SYMBOL=PRICE or SYMBOL=PRICE:Company Name entries.
func ParseStatic(list string) (*Static, error) {
	s := NewStatic()
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		sym, rest, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("static quote %q: want SYMBOL=PRICE[:Name]", entry)
		}
		priceStr, name, _ := strings.Cut(rest, ":")
		price, err := decimal.NewFromString(strings.TrimSpace(priceStr))
		if err != nil {
			return nil, fmt.Errorf("static quote %q: invalid price: %w", entry, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("static quote %q: price must be > 0", entry)
		}
		if err := s.Set(sym, strings.TrimSpace(name), price); err != nil {
			return nil, fmt.Errorf("static quote %q: %w", entry, err)
		}
	}
	return s, nil
}

// Set adds or reprices a symbol. An empty name defaults to the symbol.
// Safe for concurrent use.
func (s *Static) Set(symbol, name string, price decimal.Decimal) error {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	if name == "" {
		name = sym
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[sym] = domain.Quote{Symbol: sym, Name: name, Price: price}
	return nil
}

// Delist removes a symbol so later lookups report it as not found.
func (s *Static) Delist(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quotes, strings.ToUpper(strings.TrimSpace(symbol)))
}

// Quote returns the stored quote or domain.ErrSymbolNotFound.
func (s *Static) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSymbolNotFound, symbol)
	}
	return &q, nil
}
