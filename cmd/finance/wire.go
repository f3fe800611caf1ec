package main

import (
	"context"
	"log/slog"

	"github.com/efreitasn/finance/internal/config"
	"github.com/efreitasn/finance/internal/oracle"
	"github.com/efreitasn/finance/internal/store"
)

const quoteCacheEntries = 10_000

// openStore returns the SQLite store when a database path is configured and
// an in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.DatabasePath == "" {
		logger.Warn("DATABASE_PATH not set: users and trades are kept in memory only")
		return store.NewMemoryStore(), nil
	}
	st, err := store.OpenSQLite(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	logger.Info("ledger opened", slog.String("path", cfg.DatabasePath))
	return st, nil
}

// buildOracle assembles the configured provider behind retries. live always
// reaches the provider and prices orders. quotes serves lookups and
// valuations through a TTL cache when QUOTE_CACHE_TTL is non-zero. closeFn
// releases the cache.
func buildOracle(cfg *config.Config, logger *slog.Logger) (live, quotes oracle.Oracle, closeFn func(), err error) {
	var base oracle.Oracle
	switch cfg.OracleProvider {
	case config.ProviderAlpaca:
		base = oracle.NewAlpaca(oracle.AlpacaConfig{
			APIKey:    cfg.AlpacaKeyID,
			APISecret: cfg.AlpacaSecret,
			BaseURL:   cfg.AlpacaBaseURL,
		})
	default:
		static, err := oracle.ParseStatic(cfg.StaticQuotes)
		if err != nil {
			return nil, nil, nil, err
		}
		base = static
	}

	live = oracle.NewRetrying(base, oracle.RetryPolicy{
		Attempts: cfg.OracleAttempts,
		Timeout:  cfg.OracleTimeout,
		Backoff:  cfg.OracleBackoff,
	}, logger)

	if cfg.QuoteCacheTTL <= 0 {
		return live, live, func() {}, nil
	}
	cached, err := oracle.NewCached(live, cfg.QuoteCacheTTL, quoteCacheEntries)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("price oracle ready",
		slog.String("provider", cfg.OracleProvider),
		slog.Duration("cache_ttl", cfg.QuoteCacheTTL),
	)
	return live, cached, cached.Close, nil
}
