package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"StockFeed/internal/model"
)

// Header is the column layout written by EncodeCSV.
var Header = []string{"Datetime", "Open", "High", "Low", "Close", "Volume"}

const dateLayout = "2006-01-02"

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	dateLayout,
}

// EncodeCSV serializes bars with a header row. Intraday timestamps are
// written as RFC 3339 UTC, others as a plain date.
func EncodeCSV(tf model.Timeframe, bars []model.Bar) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, b := range bars {
		ts := b.Time.UTC().Format(dateLayout)
		if tf.Intraday() {
			ts = b.Time.UTC().Format(time.RFC3339)
		}
		rec := []string{ts, formatFloat(b.Open), formatFloat(b.High), formatFloat(b.Low), formatFloat(b.Close), formatFloat(b.Volume)}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses a stored series. Column order is free; the timestamp
// column may be named Datetime or Date. The yfinance multi-header layout
// (Price / Ticker / Datetime rows) is accepted too. Rows come back sorted
// with one bar per timestamp.
func DecodeCSV(data []byte) ([]model.Bar, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("missing header row")
	}

	cols, err := mapColumns(records[0])
	if err != nil {
		return nil, err
	}

	bars := make([]model.Bar, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2
		if isMetaRow(rec) {
			continue
		}
		if len(rec) <= cols.max {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, cols.max+1, len(rec))
		}
		ts, err := parseTime(rec[cols.time])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec[cols.open] == "" || rec[cols.high] == "" || rec[cols.low] == "" || rec[cols.close] == "" {
			continue // bar without prices, e.g. a halted session
		}
		b := model.Bar{Time: ts}
		for _, f := range []struct {
			idx int
			dst *float64
		}{
			{cols.open, &b.Open}, {cols.high, &b.High}, {cols.low, &b.Low}, {cols.close, &b.Close}, {cols.volume, &b.Volume},
		} {
			cell := strings.TrimSpace(rec[f.idx])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			*f.dst = v
		}
		bars = append(bars, b)
	}
	return model.SortDedupe(bars), nil
}

type columns struct {
	time, open, high, low, close, volume int
	max                                  int
}

func mapColumns(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}

	c := columns{time: -1}
	for _, name := range []string{"datetime", "date"} {
		if i, ok := idx[name]; ok {
			c.time = i
			break
		}
	}
	if c.time < 0 {
		// Index column written without a name, or the yfinance "Price" header.
		first := strings.ToLower(strings.TrimSpace(header[0]))
		if first == "" || first == "price" {
			c.time = 0
		} else {
			return c, errors.New("missing Datetime/Date column")
		}
	}

	for _, req := range []struct {
		name string
		dst  *int
	}{
		{"open", &c.open}, {"high", &c.high}, {"low", &c.low}, {"close", &c.close}, {"volume", &c.volume},
	} {
		i, ok := idx[req.name]
		if !ok {
			return c, fmt.Errorf("missing %s column", req.name)
		}
		*req.dst = i
	}
	for _, i := range []int{c.time, c.open, c.high, c.low, c.close, c.volume} {
		if i > c.max {
			c.max = i
		}
	}
	return c, nil
}

func isMetaRow(rec []string) bool {
	if len(rec) == 0 {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(rec[0])) {
	case "ticker", "datetime", "date", "":
		return true
	}
	return false
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
