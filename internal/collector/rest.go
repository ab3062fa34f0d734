package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"StockFeed/internal/model"
)

// RESTFetcher implements Fetcher against a self-hosted JSON bar API:
//
//	GET {base}/api/v1/bars/{hourly|daily|weekly}?symbol=AAPL&limit=N
type RESTFetcher struct {
	BaseURL  string
	APIKey   string
	Client   *http.Client
	Lookback Lookback
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration, lookback Lookback) *RESTFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if lookback == nil {
		lookback = DefaultLookback()
	}
	return &RESTFetcher{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Client:   newHTTPClient(proxyURL, timeout),
		Lookback: lookback,
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bar API.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// limit converts the lookback range into a bar count.
func (f *RESTFetcher) limit(tf model.Timeframe) (int, error) {
	days, err := RangeDays(f.Lookback.Range(tf))
	if err != nil {
		return 0, err
	}
	switch tf {
	case model.Hourly:
		return days * 7, nil // ~7 regular-session bars per day
	case model.Weekly:
		return days/7 + 1, nil
	}
	return days, nil
}

func (f *RESTFetcher) Fetch(ctx context.Context, symbol string, tf model.Timeframe) ([]model.Bar, error) {
	bars, err := f.fetch(ctx, symbol, tf)
	if err != nil {
		return nil, &FetchError{Source: f.Name(), Symbol: symbol, Err: err}
	}
	for i := range bars {
		bars[i].Time = tf.Truncate(bars[i].Time)
	}
	return bars, nil
}

func (f *RESTFetcher) fetch(ctx context.Context, symbol string, tf model.Timeframe) ([]model.Bar, error) {
	n, err := f.limit(tf)
	if err != nil {
		return nil, err
	}
	if tf == model.Weekly {
		// Try weekly endpoint first; if API only provides daily, aggregate internally.
		bars, err := f.fetchBars(ctx, "weekly", symbol, n)
		if err == nil {
			return bars, nil
		}
		daily, dailyErr := f.fetchBars(ctx, "daily", symbol, n*7)
		if dailyErr != nil {
			return nil, fmt.Errorf("weekly fetch failed: %w; daily fallback also failed: %w", err, dailyErr)
		}
		return aggregateDailyToWeekly(daily), nil
	}
	return f.fetchBars(ctx, tf.String(), symbol, n)
}

func (f *RESTFetcher) fetchBars(ctx context.Context, interval, symbol string, limit int) ([]model.Bar, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/%s?symbol=%s&limit=%d",
		f.BaseURL, interval, url.QueryEscape(symbol), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch bars: status %d", resp.StatusCode)
	}
	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.Bar, len(raw))
	for i, rb := range raw {
		bars[i] = model.Bar{
			Time:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// aggregateDailyToWeekly converts daily bars into weekly bars (ISO weeks).
// Each weekly bar is stamped with the Monday of its week, even when the
// first trading day is later.
func aggregateDailyToWeekly(daily []model.Bar) []model.Bar {
	if len(daily) == 0 {
		return nil
	}
	var weekly []model.Bar
	week := daily[0]
	week.Time = model.Weekly.Truncate(week.Time)
	wy, ww := week.Time.ISOWeek()

	for _, d := range daily[1:] {
		y, w := d.Time.ISOWeek()
		if y != wy || w != ww {
			weekly = append(weekly, week)
			week = d
			week.Time = model.Weekly.Truncate(d.Time)
			wy, ww = y, w
			continue
		}
		if d.High > week.High {
			week.High = d.High
		}
		if d.Low < week.Low {
			week.Low = d.Low
		}
		week.Close = d.Close
		week.Volume += d.Volume
	}
	return append(weekly, week)
}
