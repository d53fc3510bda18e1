package filter

import "fmt"

// LocalWindowMean returns the mean of the neighbours of values[index],
// excluding the sample itself.
//
// Left neighbours span [max(index-window, 0), index) and right neighbours
// span [index+1, min(index+window, len)). The right side therefore holds at
// most window-1 samples. Near the edges the neighbourhood shrinks; there is
// no padding or wraparound.
func LocalWindowMean(values []float64, index, window int) (float64, error) {
	if window <= 0 {
		return 0, fmt.Errorf("%w: window must be positive, got %d", ErrInvalidParameter, window)
	}
	if index < 0 || index >= len(values) {
		return 0, fmt.Errorf("%w: index %d outside [0, %d)", ErrInvalidParameter, index, len(values))
	}

	var sum float64
	count := 0

	for j := max(index-window, 0); j < index; j++ {
		sum += values[j]
		count++
	}
	for j, end := index+1, index+min(window, len(values)-index); j < end; j++ {
		sum += values[j]
		count++
	}

	if count == 0 {
		return 0, fmt.Errorf("%w: no neighbours at index %d (len=%d, window=%d)",
			ErrDegenerateWindow, index, len(values), window)
	}
	return sum / float64(count), nil
}
