package model

// Overlay holds indicator series aligned index-for-index with a Series' bars.
// Undefined positions are NaN.
type Overlay struct {
	RSI    []float64
	MACD   []float64
	Signal []float64
	EMA    []float64 // 50-period trend
	SMA    []float64 // 200-period
}
