package filter

import "math"

// IsDeviated reports whether value deviates from reference by more than the
// relative threshold. The ratio is always max/min of the pair, so the result
// does not depend on argument order. Signed inputs are compared as given,
// not by magnitude; a zero min saturates through SafeDivide.
//
// The comparison is strict: a ratio equal to threshold is not deviated.
func IsDeviated(value, reference, threshold float64) bool {
	ratio := SafeDivide(math.Max(value, reference), math.Min(value, reference))
	return math.Abs(ratio) > threshold
}
