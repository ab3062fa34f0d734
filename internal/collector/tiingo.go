package collector

import (
	"context"
	"errors"
	"time"

	quote "github.com/markcheno/go-quote"

	"StockFeed/internal/model"
)

// TiingoFetcher implements Fetcher with the Tiingo end-of-day API through
// go-quote. Only daily and weekly bars are available.
type TiingoFetcher struct {
	Token    string
	Lookback Lookback

	// download is swapped in tests.
	download func(symbol, start, end string, period quote.Period, token string) (quote.Quote, error)
	now      func() time.Time
}

// NewTiingoFetcher creates a fetcher for the given API token.
func NewTiingoFetcher(token string, lookback Lookback) *TiingoFetcher {
	if lookback == nil {
		lookback = DefaultLookback()
	}
	return &TiingoFetcher{
		Token:    token,
		Lookback: lookback,
		download: quote.NewQuoteFromTiingo,
		now:      time.Now,
	}
}

func (f *TiingoFetcher) Name() string { return "tiingo" }

func (f *TiingoFetcher) Fetch(ctx context.Context, symbol string, tf model.Timeframe) ([]model.Bar, error) {
	var period quote.Period
	switch tf {
	case model.Daily:
		period = quote.Daily
	case model.Weekly:
		period = quote.Weekly
	default:
		return nil, &FetchError{Source: f.Name(), Symbol: symbol, Err: ErrUnsupportedTimeframe}
	}
	days, err := RangeDays(f.Lookback.Range(tf))
	if err != nil {
		return nil, &FetchError{Source: f.Name(), Symbol: symbol, Err: err}
	}
	end := f.now().UTC()
	start := end.AddDate(0, 0, -days)

	// go-quote has no context support; bound the wait here. Its client has
	// its own timeout, so an abandoned request still ends.
	type result struct {
		q   quote.Quote
		err error
	}
	ch := make(chan result, 1)
	go func() {
		q, err := f.download(symbol, start.Format("2006-01-02"), end.Format("2006-01-02"), period, f.Token)
		ch <- result{q, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, &FetchError{Source: f.Name(), Symbol: symbol, Err: ctx.Err()}
	case res = <-ch:
	}
	if res.err != nil {
		return nil, &FetchError{Source: f.Name(), Symbol: symbol, Err: res.err}
	}
	return quoteToBars(res.q, tf)
}

func quoteToBars(q quote.Quote, tf model.Timeframe) ([]model.Bar, error) {
	n := len(q.Date)
	if len(q.Open) != n || len(q.High) != n || len(q.Low) != n || len(q.Close) != n || len(q.Volume) != n {
		return nil, &FetchError{Source: "tiingo", Symbol: q.Symbol, Err: errors.New("ragged quote columns")}
	}
	bars := make([]model.Bar, 0, n)
	for i := 0; i < n; i++ {
		if q.Date[i].IsZero() {
			continue
		}
		bars = append(bars, model.Bar{
			Time:   tf.Truncate(q.Date[i]),
			Open:   q.Open[i],
			High:   q.High[i],
			Low:    q.Low[i],
			Close:  q.Close[i],
			Volume: q.Volume[i],
		})
	}
	return bars, nil
}
