package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Toggle is a single indicator flip as published and stored.
type Toggle struct {
	RunID  string    `json:"run_id"`
	Series string    `json:"series"`
	Index  int       `json:"index"`
	State  bool      `json:"state"`
	Value  float64   `json:"value"` // cleaned sample at Index
	TS     time.Time `json:"ts"`
}

// Label returns "ON" or "OFF".
func (t *Toggle) Label() string {
	if t.State {
		return "ON"
	}
	return "OFF"
}

// JSON returns the JSON-encoded toggle.
func (t *Toggle) JSON() []byte {
	b, _ := json.Marshal(t)
	return b
}

// Run is the persisted record of one filtering run.
type Run struct {
	ID             string        `json:"id"`
	Series         string        `json:"series"`
	Window         int           `json:"window"`
	Threshold      float64       `json:"threshold"`
	TrendWindow    int           `json:"trend_window"`
	TrendThreshold float64       `json:"trend_threshold"`
	Raw            []float64     `json:"raw,omitempty"`
	Cleaned        []float64     `json:"cleaned"`
	Replaced       int           `json:"replaced"`
	GlobalMean     float64       `json:"global_mean"`
	FinalState     bool          `json:"final_state"`
	Toggles        []Toggle      `json:"toggles"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration_ns"`
}

// JSON returns the JSON-encoded run. It fails when a sample or statistic
// is NaN or ±Inf.
func (r *Run) JSON() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode run %s: %w", r.ID, err)
	}
	return b, nil
}
