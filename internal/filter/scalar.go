package filter

import "github.com/montanaflynn/stats"

// Epsilon replaces a zero divisor in SafeDivide.
const Epsilon = 1e-7

// SafeDivide returns dividend/divisor, substituting Epsilon for a zero divisor.
// The result saturates to a very large magnitude instead of failing; the
// deviation classifier relies on that.
func SafeDivide(dividend, divisor float64) float64 {
	if divisor == 0 {
		divisor = Epsilon
	}
	return dividend / divisor
}

// Mean returns the arithmetic mean of values.
// Unlike SafeDivide, an empty sequence is rejected with ErrEmptyInput.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	m, err := stats.Mean(stats.Float64Data(values))
	if err != nil {
		return 0, ErrEmptyInput
	}
	return m, nil
}
