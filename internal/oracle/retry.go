package oracle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/efreitasn/finance/internal/domain"
)

// RetryPolicy bounds how long a lookup may take.
type RetryPolicy struct {
	Attempts int           // total tries, at least 1
	Timeout  time.Duration // per attempt; 0 means no per-attempt limit
	Backoff  time.Duration // wait before the 2nd attempt, doubled after each failure
}

// Retrying wraps an Oracle with bounded retries for transport failures.
// Not-found answers are returned immediately.
type Retrying struct {
	next   Oracle
	policy RetryPolicy
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

var _ Oracle = (*Retrying)(nil)

// NewRetrying creates a Retrying oracle.
func NewRetrying(next Oracle, policy RetryPolicy, logger *slog.Logger) *Retrying {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &Retrying{
		next:   next,
		policy: policy,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Quote tries the wrapped oracle up to Attempts times. Once the attempts are
// used up (or ctx ends) it returns a *domain.OracleTransportError.
func (r *Retrying) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	var lastErr error
	backoff := r.policy.Backoff

	for attempt := 1; attempt <= r.policy.Attempts; attempt++ {
		q, err := r.try(ctx, symbol)
		if err == nil {
			return q, nil
		}
		if errors.Is(err, domain.ErrSymbolNotFound) {
			return nil, err
		}
		lastErr = err

		r.logger.Warn("quote lookup failed",
			slog.String("symbol", symbol),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.policy.Attempts),
			slog.String("error", err.Error()),
		)

		if ctx.Err() != nil || attempt == r.policy.Attempts {
			return nil, &domain.OracleTransportError{Symbol: symbol, Attempts: attempt, Err: lastErr}
		}
		if err := r.sleep(ctx, backoff); err != nil {
			return nil, &domain.OracleTransportError{Symbol: symbol, Attempts: attempt, Err: err}
		}
		backoff *= 2
	}

	return nil, &domain.OracleTransportError{Symbol: symbol, Attempts: r.policy.Attempts, Err: lastErr}
}

func (r *Retrying) try(ctx context.Context, symbol string) (*domain.Quote, error) {
	if r.policy.Timeout <= 0 {
		return r.next.Quote(ctx, symbol)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()
	return r.next.Quote(attemptCtx, symbol)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
