package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/efreitasn/finance/internal/domain"
)

// Cached keeps successful quotes for a short TTL. Failures are never cached.
type Cached struct {
	next  Oracle
	cache *ristretto.Cache
	ttl   time.Duration
}

var _ Oracle = (*Cached)(nil)

// NewCached wraps next with a TTL cache holding up to maxEntries quotes.
func NewCached(next Oracle, ttl time.Duration, maxEntries int64) (*Cached, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create quote cache: %w", err)
	}
	return &Cached{next: next, cache: c, ttl: ttl}, nil
}

// Quote returns a cached quote when one is fresh, otherwise asks next.
func (c *Cached) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if v, ok := c.cache.Get(symbol); ok {
		q := v.(domain.Quote)
		return &q, nil
	}

	q, err := c.next.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	c.cache.SetWithTTL(symbol, *q, 1, c.ttl)
	return q, nil
}

// Close stops the cache's background goroutines.
func (c *Cached) Close() {
	c.cache.Close()
}
