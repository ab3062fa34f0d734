package calculator

// Default MACD spans.
const (
	DefaultMACDShort  = 12
	DefaultMACDLong   = 26
	DefaultMACDSignal = 9
)

// MACD returns EMA(short)-EMA(long) and its signal line EMA(macd, signalSpan).
func MACD(closes []float64, shortSpan, longSpan, signalSpan int) (macd, signal []float64, err error) {
	short, err := EMA(closes, shortSpan)
	if err != nil {
		return nil, nil, err
	}
	long, err := EMA(closes, longSpan)
	if err != nil {
		return nil, nil, err
	}
	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = short[i] - long[i]
	}
	signal, err = EMA(macd, signalSpan)
	if err != nil {
		return nil, nil, err
	}
	return macd, signal, nil
}
