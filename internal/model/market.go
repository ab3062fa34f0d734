package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Bar represents a single OHLCV candlestick.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Timeframe is the bar granularity of a stored series.
type Timeframe string

const (
	Hourly Timeframe = "hourly"
	Daily  Timeframe = "daily"
	Weekly Timeframe = "weekly"
)

// Timeframes lists every supported timeframe.
var Timeframes = []Timeframe{Hourly, Daily, Weekly}

// ParseTimeframe accepts a timeframe name, its storage code or a common interval alias.
func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hourly", "h", "1h", "60m":
		return Hourly, nil
	case "daily", "d", "1d":
		return Daily, nil
	case "weekly", "w", "1w", "1wk":
		return Weekly, nil
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}

// Code returns the single-letter storage code (h, d, w).
func (tf Timeframe) Code() string {
	switch tf {
	case Hourly:
		return "h"
	case Daily:
		return "d"
	case Weekly:
		return "w"
	}
	return ""
}

// Intraday reports whether bars carry a time of day.
func (tf Timeframe) Intraday() bool { return tf == Hourly }

func (tf Timeframe) String() string { return string(tf) }

// Series is the ordered bar history of one symbol and timeframe.
type Series struct {
	Symbol    string
	Timeframe Timeframe
	Bars      []Bar
}

// Closes extracts close prices in bar order.
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar, if any.
func (s *Series) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Truncate maps a bar time onto the timeframe's storage resolution: whole
// seconds in UTC for intraday bars, the UTC calendar date for daily bars and
// the Monday of the ISO week for weekly bars. Every source stamps a week the
// same way, so a live mid-week row and the closed week collapse on merge.
func (tf Timeframe) Truncate(t time.Time) time.Time {
	t = t.UTC()
	if tf.Intraday() {
		return t.Truncate(time.Second)
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if tf == Weekly {
		// Sunday belongs to the week that started six days earlier.
		offset := (int(day.Weekday()) + 6) % 7
		day = day.AddDate(0, 0, -offset)
	}
	return day
}

// SortDedupe orders bars by time and keeps exactly one bar per timestamp.
// When timestamps collide the bar appearing later in the input wins.
func SortDedupe(bars []Bar) []Bar {
	pos := make(map[int64]int, len(bars))
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		k := b.Time.UnixNano()
		if i, ok := pos[k]; ok {
			out[i] = b
			continue
		}
		pos[k] = len(out)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
