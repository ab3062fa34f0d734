package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	quote "github.com/markcheno/go-quote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockFeed/internal/model"
)

func TestRangeDays(t *testing.T) {
	tests := []struct {
		in   string
		days int
		err  bool
	}{
		{"5d", 5, false},
		{"1mo", 30, false},
		{"3mo", 90, false},
		{"2wk", 14, false},
		{"1y", 365, false},
		{"max", 0, true},
		{"0d", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := RangeDays(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.days, got, tt.in)
	}
}

const yahooDaily = `{"chart":{"result":[{"meta":{"gmtoffset":-18000},
"timestamp":[1709303400,1709217000,1709562600],
"indicators":{"quote":[{"open":[180.1,179.0,null],"high":[182.0,180.5,null],
"low":[179.5,178.2,null],"close":[181.0,180.0,null],"volume":[1000,2000,null]}]}}],"error":null}}`

func TestYahooFetcher_Daily(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		fmt.Fprint(w, yahooDaily)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second, Lookback{model.Daily: "5d"})
	f.BaseURL = srv.URL

	bars, err := f.Fetch(context.Background(), "BRK-B", model.Daily)
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/BRK-B", gotPath)
	assert.Contains(t, gotQuery, "interval=1d")
	assert.Contains(t, gotQuery, "range=5d")

	require.Len(t, bars, 2, "null bar skipped")
	// 2024-02-29 14:30 UTC and 2024-03-01 14:30 UTC, keyed by New York date
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), bars[0].Time)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), bars[1].Time)
	assert.Equal(t, 181.0, bars[1].Close)
	assert.Equal(t, 1000.0, bars[1].Volume)
}

func TestYahooFetcher_WeeklyLiveRowSnapsToMonday(t *testing.T) {
	// Mon 2024-01-01 14:30 UTC and a live row on Wed 2024-01-10 20:00 UTC.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "interval=1wk")
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"gmtoffset":-18000},"timestamp":[1704119400,1704916800],
"indicators":{"quote":[{"open":[1,2],"high":[2,3],"low":[0.5,1.5],"close":[1.5,2.5],"volume":[10,20]}]}}]}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second, nil)
	f.BaseURL = srv.URL
	bars, err := f.Fetch(context.Background(), "AAPL", model.Weekly)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].Time)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), bars[1].Time)
}

func TestYahooFetcher_HourlyKeepsTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "interval=60m")
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"gmtoffset":-18000},"timestamp":[1709303400],
"indicators":{"quote":[{"open":[1],"high":[2],"low":[0.5],"close":[1.5],"volume":[null]}]}}]}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second, nil)
	f.BaseURL = srv.URL
	bars, err := f.Fetch(context.Background(), "AAPL", model.Hourly)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, time.Unix(1709303400, 0).UTC(), bars[0].Time)
	assert.Zero(t, bars[0].Volume)
}

func TestYahooFetcher_EmptyResultIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{},"indicators":{"quote":[{}]}}],"error":null}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second, nil)
	f.BaseURL = srv.URL
	bars, err := f.Fetch(context.Background(), "AAPL", model.Daily)
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestYahooFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "NOPE") {
			fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
			return
		}
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second, nil)
	f.BaseURL = srv.URL

	_, err := f.Fetch(context.Background(), "NOPE", model.Daily)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "NOPE", fe.Symbol)
	assert.ErrorContains(t, err, "delisted")

	_, err = f.Fetch(context.Background(), "AAPL", model.Daily)
	assert.ErrorContains(t, err, "status 429")
}

func TestRESTFetcher_WeeklyFallsBackToDaily(t *testing.T) {
	mon := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/bars/weekly":
			http.Error(w, "not implemented", http.StatusNotFound)
		case "/api/v1/bars/daily":
			fmt.Fprintf(w, `[
{"timestamp":%d,"open":10,"high":12,"low":9,"close":11,"volume":100},
{"timestamp":%d,"open":11,"high":14,"low":10,"close":13,"volume":50},
{"timestamp":%d,"open":13,"high":13,"low":8,"close":9,"volume":70}]`,
				mon.Unix(), mon.AddDate(0, 0, 1).Unix(), mon.AddDate(0, 0, 7).Unix())
		}
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "", time.Second, nil)
	bars, err := f.Fetch(context.Background(), "AAPL", model.Weekly)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, model.Bar{Time: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Open: 10, High: 14, Low: 9, Close: 13, Volume: 150}, bars[0])
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), bars[1].Time)
}

func TestAggregateDailyToWeekly_HolidayMondayStillStampsMonday(t *testing.T) {
	// 2024-01-15 is a market holiday; the week opens on Tuesday.
	tue := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	weekly := aggregateDailyToWeekly([]model.Bar{
		{Time: tue, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 5},
		{Time: tue.AddDate(0, 0, 1), Open: 10.5, High: 12, Low: 10, Close: 11, Volume: 7},
	})
	require.Len(t, weekly, 1)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), weekly[0].Time)
	assert.Equal(t, 12.0, weekly[0].High)
	assert.Equal(t, 12.0, weekly[0].Volume)
}

func TestTiingoFetcher(t *testing.T) {
	f := NewTiingoFetcher("tok", Lookback{model.Daily: "5d"})
	f.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	f.download = func(symbol, start, end string, period quote.Period, token string) (quote.Quote, error) {
		assert.Equal(t, "AAPL", symbol)
		assert.Equal(t, "2024-03-05", start)
		assert.Equal(t, "2024-03-10", end)
		assert.Equal(t, quote.Daily, period)
		assert.Equal(t, "tok", token)
		q := quote.NewQuote(symbol, 2)
		q.Date[0], q.Date[1] = time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
		q.Close[0], q.Close[1] = 170, 171
		return q, nil
	}

	bars, err := f.Fetch(context.Background(), "AAPL", model.Daily)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 171.0, bars[1].Close)

	_, err = f.Fetch(context.Background(), "AAPL", model.Hourly)
	assert.ErrorIs(t, err, ErrUnsupportedTimeframe)
}

type flakyFetcher struct {
	fails int32
	calls int32
}

func (f *flakyFetcher) Name() string { return "flaky" }

func (f *flakyFetcher) Fetch(_ context.Context, symbol string, _ model.Timeframe) ([]model.Bar, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.fails {
		return nil, &FetchError{Source: "flaky", Symbol: symbol, Err: errors.New("boom")}
	}
	return []model.Bar{{Close: 1}}, nil
}

func TestRetryFetcher(t *testing.T) {
	var slept []time.Duration
	noSleep := func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	inner := &flakyFetcher{fails: 2}
	r := NewRetryFetcher(inner, 2, 10*time.Millisecond, 0)
	r.sleep = noSleep
	bars, err := r.Fetch(context.Background(), "AAPL", model.Daily)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, int32(3), inner.calls)
	// delay, 1s backoff, delay, 2s backoff, delay
	assert.Equal(t, []time.Duration{10 * time.Millisecond, time.Second, 10 * time.Millisecond, 2 * time.Second, 10 * time.Millisecond}, slept)

	inner = &flakyFetcher{fails: 10}
	r = NewRetryFetcher(inner, 1, 0, 0)
	r.sleep = func(context.Context, time.Duration) error { return nil }
	_, err = r.Fetch(context.Background(), "AAPL", model.Daily)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, int32(2), inner.calls)
}

func TestRetryFetcher_NoRetryOnUnsupported(t *testing.T) {
	r := NewRetryFetcher(NewTiingoFetcher("tok", nil), 3, 0, 0)
	r.sleep = func(context.Context, time.Duration) error { return nil }
	_, err := r.Fetch(context.Background(), "AAPL", model.Hourly)
	assert.ErrorIs(t, err, ErrUnsupportedTimeframe)
}

// hangOnceFetcher blocks on its first call until the attempt deadline fires.
type hangOnceFetcher struct{ calls int32 }

func (h *hangOnceFetcher) Name() string { return "hang" }

func (h *hangOnceFetcher) Fetch(ctx context.Context, symbol string, _ model.Timeframe) ([]model.Bar, error) {
	if atomic.AddInt32(&h.calls, 1) == 1 {
		<-ctx.Done()
		return nil, &FetchError{Source: "hang", Symbol: symbol, Err: ctx.Err()}
	}
	return []model.Bar{{Close: 2}}, nil
}

func TestRetryFetcher_HungAttemptIsRetried(t *testing.T) {
	inner := &hangOnceFetcher{}
	r := NewRetryFetcher(inner, 1, 0, 20*time.Millisecond)
	r.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	ctx, cancel := context.WithTimeout(context.Background(), r.Budget()+time.Second)
	defer cancel()
	bars, err := r.Fetch(ctx, "AAPL", model.Daily)
	require.NoError(t, err)
	assert.Equal(t, []model.Bar{{Close: 2}}, bars)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}

func TestRetryFetcher_CallerCancelStopsRetries(t *testing.T) {
	inner := &hangOnceFetcher{}
	r := NewRetryFetcher(inner, 3, 0, time.Minute)
	r.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Fetch(ctx, "AAPL", model.Daily)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))
}

func TestRetryFetcher_Budget(t *testing.T) {
	r := NewRetryFetcher(&flakyFetcher{}, 2, 100*time.Millisecond, 10*time.Second)
	// three attempts with delay, plus 1s and 2s backoff
	assert.Equal(t, 3*(10*time.Second+100*time.Millisecond)+3*time.Second, r.Budget())
}
