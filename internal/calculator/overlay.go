package calculator

import (
	"fmt"

	"StockFeed/internal/model"
)

// Overlay periods used by ComputeOverlay.
const (
	TrendEMASpan  = 50
	LongSMAPeriod = 200
)

// ComputeOverlay derives the display indicators for a series.
func ComputeOverlay(s *model.Series) (*model.Overlay, error) {
	closes := s.Closes()

	rsi, err := RSI(closes, DefaultRSIPeriod)
	if err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	macd, signal, err := MACD(closes, DefaultMACDShort, DefaultMACDLong, DefaultMACDSignal)
	if err != nil {
		return nil, fmt.Errorf("macd: %w", err)
	}
	ema, err := EMA(closes, TrendEMASpan)
	if err != nil {
		return nil, fmt.Errorf("ema: %w", err)
	}
	sma, err := SMA(closes, LongSMAPeriod)
	if err != nil {
		return nil, fmt.Errorf("sma: %w", err)
	}
	return &model.Overlay{RSI: rsi, MACD: macd, Signal: signal, EMA: ema, SMA: sma}, nil
}
