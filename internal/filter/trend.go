package filter

// Direction classifies the local trend at an index.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionUp
	DirectionDown
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "UP"
	case DirectionDown:
		return "DOWN"
	default:
		return "NONE"
	}
}

// DefaultTrendWindow is the forward span used by the trend pass.
const DefaultTrendWindow = 2

// TrendDirection inspects the forward indices (index, min(index+window, len))
// and counts the samples that deviate from globalMean, split by side.
// values[index] itself is not examined.
//
// UP wins when at least window-1 deviated samples lie above the mean, then
// DOWN when at least window-1 lie at or below it. With window 2 a single
// deviated sample decides; with window 1 nothing is examined and the result
// is always UP.
func TrendDirection(values []float64, index, window int, globalMean, threshold float64) Direction {
	increase, decrease := 0, 0
	for j, end := index+1, index+min(window, len(values)-index); j < end; j++ {
		if !IsDeviated(values[j], globalMean, threshold) {
			continue
		}
		if values[j] > globalMean {
			increase++
		} else {
			decrease++
		}
	}

	switch {
	case increase >= window-1:
		return DirectionUp
	case decrease >= window-1:
		return DirectionDown
	default:
		return DirectionNone
	}
}
