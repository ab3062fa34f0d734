package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"StockFeed/internal/model"
)

// Fetcher retrieves the most recent window of bars for a symbol.
// An empty slice with a nil error means the source had no rows.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, tf model.Timeframe) ([]model.Bar, error)
	Name() string
}

// ErrUnsupportedTimeframe is returned by sources that cannot serve a timeframe.
var ErrUnsupportedTimeframe = errors.New("timeframe not supported by source")

// FetchError reports a failed request to an external source.
type FetchError struct {
	Source string
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s from %s: %v", e.Symbol, e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Lookback maps each timeframe to a Yahoo-style range ("5d", "1mo", "1y", ...).
type Lookback map[model.Timeframe]string

// DefaultLookback covers a few missed runs for every timeframe.
func DefaultLookback() Lookback {
	return Lookback{
		model.Hourly: "1mo",
		model.Daily:  "3mo",
		model.Weekly: "1y",
	}
}

// Range returns the configured range for tf, falling back to the default.
func (l Lookback) Range(tf model.Timeframe) string {
	if r, ok := l[tf]; ok && r != "" {
		return r
	}
	return DefaultLookback()[tf]
}

// RangeDays converts a range such as "5d", "1mo", "2y" into calendar days.
func RangeDays(rng string) (int, error) {
	rng = strings.ToLower(strings.TrimSpace(rng))
	units := []struct {
		suffix string
		days   int
	}{
		{"mo", 30}, {"wk", 7}, {"d", 1}, {"y", 365},
	}
	for _, u := range units {
		if !strings.HasSuffix(rng, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(rng, u.suffix))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid range %q", rng)
		}
		return n * u.days, nil
	}
	return 0, fmt.Errorf("invalid range %q", rng)
}

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
