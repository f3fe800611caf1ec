package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/finance/internal/domain"
)

// assetLookup and tradeLookup are the parts of the Alpaca clients the
// oracle uses.
type assetLookup interface {
	GetAsset(symbol string) (*alpaca.Asset, error)
}

type tradeLookup interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// AlpacaConfig holds credentials for the Alpaca trading and market data APIs.
// Empty fields fall back to the APCA_* environment variables read by the SDK.
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// Alpaca resolves symbols against Alpaca's asset list (for the company name
// and existence) and prices them with the latest trade.
type Alpaca struct {
	assets assetLookup
	trades tradeLookup
}

var _ Oracle = (*Alpaca)(nil)

// NewAlpaca creates an Alpaca-backed oracle.
func NewAlpaca(cfg AlpacaConfig) *Alpaca {
	return &Alpaca{
		assets: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			BaseURL:   cfg.BaseURL,
		}),
		trades: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
		}),
	}
}

// Quote looks the asset up and prices it. Unknown, inactive and
// non-tradable assets are reported as domain.ErrSymbolNotFound.
func (a *Alpaca) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	asset, err := call(ctx, func() (*alpaca.Asset, error) {
		return a.assets.GetAsset(symbol)
	})
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrSymbolNotFound, symbol)
		}
		return nil, fmt.Errorf("get asset %s: %w", symbol, err)
	}
	if asset == nil || string(asset.Status) != "active" || !asset.Tradable {
		return nil, fmt.Errorf("%w: %s is not tradable", domain.ErrSymbolNotFound, symbol)
	}

	trade, err := call(ctx, func() (*marketdata.Trade, error) {
		return a.trades.GetLatestTrade(asset.Symbol, marketdata.GetLatestTradeRequest{})
	})
	if err != nil {
		return nil, fmt.Errorf("get latest trade %s: %w", asset.Symbol, err)
	}
	if trade == nil || trade.Price <= 0 {
		return nil, fmt.Errorf("get latest trade %s: no trades reported", asset.Symbol)
	}

	return &domain.Quote{
		Symbol: asset.Symbol,
		Name:   asset.Name,
		Price:  decimal.NewFromFloat(trade.Price),
	}, nil
}

// call runs a blocking SDK call and abandons it if ctx ends first. The SDK
// calls take no context; an abandoned call finishes in the background under
// the client's own HTTP timeout.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
