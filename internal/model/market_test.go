package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	wed := time.Date(2024, 1, 10, 20, 15, 30, 500, time.UTC)
	tests := []struct {
		name string
		tf   Timeframe
		in   time.Time
		want time.Time
	}{
		{"hourly drops sub-second", Hourly, wed, time.Date(2024, 1, 10, 20, 15, 30, 0, time.UTC)},
		{"daily keeps the date", Daily, wed, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"weekly midweek", Weekly, wed, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
		{"weekly monday", Weekly, time.Date(2024, 1, 8, 14, 30, 0, 0, time.UTC), time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
		{"weekly sunday", Weekly, time.Date(2024, 1, 14, 23, 0, 0, 0, time.UTC), time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
		{"weekly across year end", Weekly, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tf.Truncate(tt.in))
		})
	}
}

func TestSortDedupe_LaterWins(t *testing.T) {
	d := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	out := SortDedupe([]Bar{{Time: d.AddDate(0, 0, 7), Close: 3}, {Time: d, Close: 1}, {Time: d, Close: 2}})
	assert.Equal(t, []Bar{{Time: d, Close: 2}, {Time: d.AddDate(0, 0, 7), Close: 3}}, out)
}
