package collector

import (
	"context"
	"sync"
	"time"

	"StockFeed/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	mu    sync.Mutex
	Bars  map[string][]model.Bar
	Errs  map[string]error
	calls []string
}

// NewMockFetcher returns an empty mock.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{Bars: map[string][]model.Bar{}, Errs: map[string]error{}}
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Fetch(_ context.Context, symbol string, _ model.Timeframe) ([]model.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, symbol)
	if err, ok := m.Errs[symbol]; ok {
		return nil, &FetchError{Source: "mock", Symbol: symbol, Err: err}
	}
	return append([]model.Bar(nil), m.Bars[symbol]...), nil
}

// Calls returns the symbols requested so far, in order.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// GenerateBars builds count bars spaced by step, drifting around basePrice.
func GenerateBars(start time.Time, step time.Duration, basePrice float64, count int) []model.Bar {
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Time:   start.Add(time.Duration(i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
