package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestRunJSON(t *testing.T) {
	run := Run{ID: "beer-1", Series: "beer", Cleaned: []float64{8, 9}, Toggles: []Toggle{{Index: 1, State: true}}}
	b, err := run.JSON()
	if err != nil {
		t.Fatal(err)
	}
	var got Run
	if err := json.Unmarshal(b, &got); err != nil || got.ID != "beer-1" || len(got.Toggles) != 1 {
		t.Errorf("unexpected decode %+v, %v", got, err)
	}
}

func TestRunJSON_NonFinite(t *testing.T) {
	for _, run := range []Run{
		{ID: "a", Cleaned: []float64{math.Inf(1)}},
		{ID: "b", GlobalMean: math.NaN()},
	} {
		if b, err := run.JSON(); err == nil {
			t.Errorf("run %s: expected error, got %s", run.ID, b)
		}
	}
}
