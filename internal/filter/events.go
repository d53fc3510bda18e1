package filter

import "fmt"

// ToggleEvent is emitted when the indicator flips.
type ToggleEvent struct {
	Index int  `json:"index"`
	State bool `json:"state"`
}

// Indicator is the on/off state carried through the trend pass.
type Indicator struct {
	On bool
}

// Apply folds one trend decision into the indicator. It returns the next
// state and, when the state flipped, the event describing the flip.
// UP only switches an off indicator on; DOWN only switches an on indicator off.
func (ind Indicator) Apply(index int, dir Direction) (Indicator, ToggleEvent, bool) {
	switch {
	case dir == DirectionUp && !ind.On:
		return Indicator{On: true}, ToggleEvent{Index: index, State: true}, true
	case dir == DirectionDown && ind.On:
		return Indicator{On: false}, ToggleEvent{Index: index, State: false}, true
	default:
		return ind, ToggleEvent{}, false
	}
}

// DetectTrendEvents runs the trend pass over a cleaned sequence with the
// indicator starting off. Events are ordered by index and alternate in
// state, beginning with true.
func DetectTrendEvents(values []float64, threshold float64, trendWindow int) ([]ToggleEvent, error) {
	events, _, err := DetectTrendEventsFrom(values, threshold, trendWindow, false)
	return events, err
}

// DetectTrendEventsFrom runs the trend pass from an explicit initial state
// and returns the emitted events together with the final state.
// The global mean is computed once over values.
func DetectTrendEventsFrom(values []float64, threshold float64, trendWindow int, initial bool) ([]ToggleEvent, bool, error) {
	if err := validate(trendWindow, threshold); err != nil {
		return nil, initial, err
	}
	globalMean, err := Mean(values)
	if err != nil {
		return nil, initial, fmt.Errorf("trend pass: %w", err)
	}

	ind := Indicator{On: initial}
	var events []ToggleEvent
	for i := range values {
		dir := TrendDirection(values, i, trendWindow, globalMean, threshold)
		next, ev, flipped := ind.Apply(i, dir)
		if flipped {
			events = append(events, ev)
		}
		ind = next
	}
	return events, ind.On, nil
}
