package filter

import (
	"errors"
	"math"
	"testing"
)

// rampSeries: flat 8s with a sustained rise at 20..25 and a dip at 40..42.
func rampSeries() []float64 {
	var s []float64
	s = append(s, repeat(8, 20)...)
	s = append(s, 17, 16, 17, 15, 14, 13)
	s = append(s, repeat(8, 14)...)
	s = append(s, 3, 2, 3)
	s = append(s, repeat(8, 10)...)
	return s
}

func TestTrendDirection(t *testing.T) {
	values := []float64{8, 8, 20, 8, 1, 8}
	const mean = 8.0

	cases := []struct {
		index int
		want  Direction
	}{
		{0, DirectionNone}, // next is 8
		{1, DirectionUp},   // next is 20
		{2, DirectionNone}, // index itself is not examined
		{3, DirectionDown}, // next is 1
		{5, DirectionNone}, // nothing ahead
	}
	for _, c := range cases {
		if got := TrendDirection(values, c.index, 2, mean, 1.3); got != c.want {
			t.Errorf("index %d: got %v, want %v", c.index, got, c.want)
		}
	}
}

func TestTrendDirection_WindowOneAlwaysUp(t *testing.T) {
	values := []float64{1, 100, 1}
	for i := range values {
		if got := TrendDirection(values, i, 1, 50, 1.3); got != DirectionUp {
			t.Errorf("index %d: got %v, want UP", i, got)
		}
	}
}

func TestTrendDirection_HugeWindowClipped(t *testing.T) {
	values := []float64{8, 30, 30, 30}
	if got := TrendDirection(values, 0, math.MaxInt, 8, 1.3); got != DirectionNone {
		t.Errorf("got %v, want NONE", got)
	}
	if got := TrendDirection(values, 3, math.MaxInt, 8, 1.3); got != DirectionNone {
		t.Errorf("last index: got %v, want NONE", got)
	}
}

func TestTrendDirection_WiderWindowNeedsMoreVotes(t *testing.T) {
	// window 3 examines two samples and needs two votes.
	values := []float64{8, 20, 8, 8, 20, 20}
	if got := TrendDirection(values, 0, 3, 8, 1.3); got != DirectionNone {
		t.Errorf("one vote: got %v, want NONE", got)
	}
	if got := TrendDirection(values, 3, 3, 8, 1.3); got != DirectionUp {
		t.Errorf("two votes: got %v, want UP", got)
	}
}

func TestDirectionString(t *testing.T) {
	if DirectionUp.String() != "UP" || DirectionDown.String() != "DOWN" || DirectionNone.String() != "NONE" {
		t.Error("unexpected Direction strings")
	}
}

func TestDetectTrendEvents_RampUpThenDip(t *testing.T) {
	events, final, err := DetectTrendEventsFrom(rampSeries(), 1.3, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []ToggleEvent{{Index: 19, State: true}, {Index: 39, State: false}}
	if len(events) != len(want) {
		t.Fatalf("events: got %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d: got %+v, want %+v", i, events[i], want[i])
		}
	}
	if final {
		t.Error("final state should be off")
	}
}

func TestDetectTrendEvents_FlatNeverToggles(t *testing.T) {
	events, err := DetectTrendEvents(repeat(8, 50), 1.3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
}

func TestDetectTrendEvents_InitialStateOn(t *testing.T) {
	// Starting on, the first event can only be a switch off.
	events, final, err := DetectTrendEventsFrom(rampSeries(), 1.3, 2, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) == 0 || events[0].State {
		t.Fatalf("expected first event to switch off, got %v", events)
	}
	if final {
		t.Error("final state should be off")
	}
}

func TestDetectTrendEvents_Errors(t *testing.T) {
	if _, err := DetectTrendEvents(nil, 1.3, 2); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("empty: %v", err)
	}
	if _, err := DetectTrendEvents([]float64{1}, 0, 2); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("threshold 0: %v", err)
	}
	if _, err := DetectTrendEvents([]float64{1}, 1.3, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("window 0: %v", err)
	}
}

func TestIndicatorApply(t *testing.T) {
	off := Indicator{}
	if next, _, flipped := off.Apply(3, DirectionDown); flipped || next.On {
		t.Error("DOWN must not flip an off indicator")
	}
	next, ev, flipped := off.Apply(3, DirectionUp)
	if !flipped || !next.On || ev != (ToggleEvent{Index: 3, State: true}) {
		t.Errorf("UP on off indicator: %+v %+v %v", next, ev, flipped)
	}
	if _, _, flipped := next.Apply(4, DirectionUp); flipped {
		t.Error("UP must not flip an on indicator")
	}
	if _, _, flipped := next.Apply(4, DirectionNone); flipped {
		t.Error("NONE must never flip")
	}
}
