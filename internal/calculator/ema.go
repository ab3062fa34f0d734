package calculator

// EMA computes the exponential moving average with alpha = 2/(span+1),
// seeded by the first value and without warm-up bias correction:
//
//	e[0] = x[0]
//	e[i] = alpha*x[i] + (1-alpha)*e[i-1]
func EMA(values []float64, span int) ([]float64, error) {
	if err := checkInput(values, span, "span"); err != nil {
		return nil, err
	}
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1.0-alpha)*out[i-1]
	}
	return out, nil
}
