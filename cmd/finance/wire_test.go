package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/efreitasn/finance/internal/config"
	"github.com/efreitasn/finance/internal/domain"
	"github.com/efreitasn/finance/internal/oracle"
	"github.com/efreitasn/finance/internal/store"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestBuildOracle_Static(t *testing.T) {
	cfg := &config.Config{
		OracleProvider: config.ProviderStatic,
		StaticQuotes:   "AAPL=50.00:Apple Inc.",
		OracleAttempts: 2,
		OracleTimeout:  time.Second,
		QuoteCacheTTL:  time.Minute,
	}

	live, o, closeFn, err := buildOracle(cfg, discardLogger)
	if err != nil {
		t.Fatalf("buildOracle: %v", err)
	}
	defer closeFn()

	if _, ok := o.(*oracle.Cached); !ok {
		t.Errorf("quote oracle is %T, want *oracle.Cached", o)
	}
	// Orders are never priced from the cache.
	if _, ok := live.(*oracle.Retrying); !ok {
		t.Errorf("live oracle is %T, want *oracle.Retrying", live)
	}
	q, err := o.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Name != "Apple Inc." {
		t.Errorf("name = %q", q.Name)
	}
	if _, err := o.Quote(context.Background(), "ZZZZ"); !errors.Is(err, domain.ErrSymbolNotFound) {
		t.Errorf("err = %v, want ErrSymbolNotFound", err)
	}
}

func TestBuildOracle_NoCache(t *testing.T) {
	cfg := &config.Config{OracleProvider: config.ProviderStatic, OracleAttempts: 1}

	live, o, closeFn, err := buildOracle(cfg, discardLogger)
	if err != nil {
		t.Fatalf("buildOracle: %v", err)
	}
	defer closeFn()

	if _, ok := o.(*oracle.Retrying); !ok {
		t.Errorf("quote oracle is %T, want *oracle.Retrying", o)
	}
	if live != o {
		t.Error("without a cache, orders and quotes should share one oracle")
	}
}

func TestBuildOracle_BadStaticQuotes(t *testing.T) {
	cfg := &config.Config{OracleProvider: config.ProviderStatic, StaticQuotes: "AAPL"}

	if _, _, _, err := buildOracle(cfg, discardLogger); err == nil {
		t.Fatal("expected error for malformed STATIC_QUOTES")
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	st, err := openStore(ctx, &config.Config{}, discardLogger)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	if _, ok := st.(*store.MemoryStore); !ok {
		t.Errorf("store is %T, want *store.MemoryStore", st)
	}

	path := filepath.Join(t.TempDir(), "ledger.db")
	st, err = openStore(ctx, &config.Config{DatabasePath: path}, discardLogger)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*store.SQLiteStore); !ok {
		t.Errorf("store is %T, want *store.SQLiteStore", st)
	}
}
