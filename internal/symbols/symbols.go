// Package symbols resolves the list of tickers a batch runs over.
package symbols

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	quote "github.com/markcheno/go-quote"
)

// DefaultSP500URL is the S&P 500 constituents table of the datasets project.
const DefaultSP500URL = "https://raw.githubusercontent.com/datasets/s-and-p-500-companies/master/data/constituents.csv"

// Source yields raw ticker symbols.
type Source interface {
	Symbols(ctx context.Context) ([]string, error)
	Name() string
}

// Normalize trims and upper-cases a ticker and replaces "." with "-"
// ("BRK.B" becomes "BRK-B"), the form market-data APIs expect.
func Normalize(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(symbol)), ".", "-")
}

// ErrInvalidSymbol marks a ticker that cannot name a series object.
var ErrInvalidSymbol = errors.New("invalid symbol")

// Validate rejects symbols that are empty or would escape the series
// directory when used as a key segment.
func Validate(symbol string) error {
	if symbol == "" || strings.ContainsAny(symbol, "/\\\x00") || strings.Contains(symbol, "..") {
		return fmt.Errorf("%w %q", ErrInvalidSymbol, symbol)
	}
	return nil
}

// NormalizeAll normalizes symbols, drops blanks and invalid tickers, and
// keeps the first occurrence of each.
func NormalizeAll(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		n := Normalize(s)
		if n == "" {
			continue
		}
		if err := Validate(n); err != nil {
			slog.Warn("skipping symbol", "symbol", s, "err", err)
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Load resolves a source into a normalized, de-duplicated list.
func Load(ctx context.Context, src Source) ([]string, error) {
	raw, err := src.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("load symbols from %s: %w", src.Name(), err)
	}
	list := NormalizeAll(raw)
	if len(list) == 0 {
		return nil, fmt.Errorf("load symbols from %s: empty list", src.Name())
	}
	return list, nil
}

// Fixed is a static list.
type Fixed []string

func (f Fixed) Name() string { return "fixed" }

func (f Fixed) Symbols(context.Context) ([]string, error) { return []string(f), nil }

// SP500CSV downloads a constituents CSV and reads its Symbol column.
type SP500CSV struct {
	URL    string
	Client *http.Client
}

// NewSP500CSV returns a source for url, or DefaultSP500URL when empty.
func NewSP500CSV(url string) *SP500CSV {
	if url == "" {
		url = DefaultSP500URL
	}
	return &SP500CSV{URL: url, Client: &http.Client{Timeout: 30 * time.Second}}
}

func (s *SP500CSV) Name() string { return "sp500" }

func (s *SP500CSV) Symbols(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	r := csv.NewReader(resp.Body)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "symbol") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, errors.New("no Symbol column")
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(records))
	for _, rec := range records {
		if col < len(rec) {
			out = append(out, rec[col])
		}
	}
	return out, nil
}

// Market is a go-quote market list such as "nasdaq100" or "megacap".
type Market struct {
	Market string

	list func(market string) ([]string, error)
}

// NewMarket returns a source for a go-quote market name.
func NewMarket(market string) *Market {
	return &Market{Market: market, list: quote.NewMarketList}
}

func (m *Market) Name() string { return "market:" + m.Market }

func (m *Market) Symbols(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.list(m.Market)
}

// ValidMarket reports whether go-quote knows the market name.
func ValidMarket(market string) bool {
	for _, v := range quote.ValidMarkets {
		if v == market {
			return true
		}
	}
	return false
}
