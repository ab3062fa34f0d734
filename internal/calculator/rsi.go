package calculator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// DefaultRSIPeriod is the conventional RSI lookback.
const DefaultRSIPeriod = 14

// RSI computes the relative strength index at every index using a simple
// rolling mean of gains and losses over the trailing period price changes
// (not Wilder smoothing). The first period entries are NaN.
//
// A window without losses yields 100; a window without any price change is
// undefined and yields NaN.
func RSI(closes []float64, period int) ([]float64, error) {
	if err := checkInput(closes, period, "period"); err != nil {
		return nil, err
	}
	out := nanSlice(len(closes))
	if len(closes) <= period {
		return out, nil
	}

	// Change i is closes[i+1]-closes[i].
	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}
	avgGain := talib.Sma(gains, period)
	avgLoss := talib.Sma(losses, period)

	for i := period; i < len(closes); i++ {
		out[i] = rsiValue(avgGain[i-1], avgLoss[i-1])
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	// Rolling sums can leave tiny negative residue.
	if avgLoss < 1e-12 {
		if avgGain < 1e-12 {
			return math.NaN()
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
