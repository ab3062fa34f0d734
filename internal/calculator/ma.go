package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
)

// ErrEmptyInput is returned when an indicator is computed over no data.
var ErrEmptyInput = errors.New("calculator: empty input")

func checkInput(values []float64, period int, name string) error {
	if len(values) == 0 {
		return ErrEmptyInput
	}
	if period <= 0 {
		return fmt.Errorf("calculator: %s must be positive, got %d", name, period)
	}
	return nil
}

// SMA computes the simple moving average at every index. The first period-1
// entries are NaN because the window is incomplete.
func SMA(values []float64, period int) ([]float64, error) {
	if err := checkInput(values, period, "period"); err != nil {
		return nil, err
	}
	out := nanSlice(len(values))
	if len(values) < period {
		return out, nil
	}
	sma := talib.Sma(values, period)
	copy(out[period-1:], sma[period-1:])
	return out, nil
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
