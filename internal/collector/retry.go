package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"StockFeed/internal/model"
)

// RetryFetcher wraps a Fetcher with a polite per-request delay and
// exponential backoff on failure. Each attempt gets its own deadline, so a
// hung first request still leaves room for the retries.
type RetryFetcher struct {
	Inner          Fetcher
	Retries        int           // extra attempts after the first
	Delay          time.Duration // pause before every request
	Backoff        time.Duration // first backoff; doubles per attempt
	AttemptTimeout time.Duration // per attempt; zero means only ctx bounds it

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryFetcher wraps inner.
func NewRetryFetcher(inner Fetcher, retries int, delay, attemptTimeout time.Duration) *RetryFetcher {
	return &RetryFetcher{
		Inner:          inner,
		Retries:        retries,
		Delay:          delay,
		Backoff:        time.Second,
		AttemptTimeout: attemptTimeout,
		sleep:          sleepCtx,
	}
}

func (r *RetryFetcher) Name() string { return r.Inner.Name() }

// Budget is the longest Fetch can run when every attempt hits its timeout.
// Callers that put a deadline around Fetch should allow at least this much.
func (r *RetryFetcher) Budget() time.Duration {
	total := time.Duration(r.Retries+1) * (r.Delay + r.AttemptTimeout)
	for i := 0; i < r.Retries; i++ {
		total += r.Backoff << uint(i)
	}
	return total
}

func (r *RetryFetcher) attempt(ctx context.Context, symbol string, tf model.Timeframe) ([]model.Bar, error) {
	if r.AttemptTimeout <= 0 {
		return r.Inner.Fetch(ctx, symbol, tf)
	}
	actx, cancel := context.WithTimeout(ctx, r.AttemptTimeout)
	defer cancel()
	return r.Inner.Fetch(actx, symbol, tf)
}

func (r *RetryFetcher) Fetch(ctx context.Context, symbol string, tf model.Timeframe) ([]model.Bar, error) {
	var lastErr error
	for i := 0; i <= r.Retries; i++ {
		if err := r.sleep(ctx, r.Delay); err != nil {
			return nil, &FetchError{Source: r.Name(), Symbol: symbol, Err: err}
		}
		bars, err := r.attempt(ctx, symbol, tf)
		if err == nil {
			return bars, nil
		}
		lastErr = err
		// An expired attempt deadline is retried; only the caller's ctx stops the loop.
		if errors.Is(err, ErrUnsupportedTimeframe) || ctx.Err() != nil || i == r.Retries {
			break
		}
		backoff := r.Backoff << uint(i)
		slog.Warn("fetch failed, retrying",
			"symbol", symbol, "source", r.Name(), "attempt", i+1, "max_attempts", r.Retries+1, "backoff", backoff, "err", err)
		if err := r.sleep(ctx, backoff); err != nil {
			break
		}
	}
	var fe *FetchError
	if errors.As(lastErr, &fe) {
		return nil, lastErr
	}
	return nil, &FetchError{Source: r.Name(), Symbol: symbol, Err: fmt.Errorf("all %d attempts failed: %w", r.Retries+1, lastErr)}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
