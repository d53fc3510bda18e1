package model

import "encoding/json"

// Series is a named, finite sequence of samples. The index of a sample is
// its implicit time step.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Len returns the number of samples.
func (s *Series) Len() int { return len(s.Values) }

// ToggleChannel returns the PubSub channel for this series' toggle events:
// "pub:toggle:{name}".
func ToggleChannel(series string) string {
	return "pub:toggle:" + series
}

// ToggleStream returns the Redis stream key: "toggle:{name}".
func ToggleStream(series string) string {
	return "toggle:" + series
}

// StateKey returns the key holding the latest indicator state.
func StateKey(series string) string {
	return "toggle:state:" + series
}

// JSON returns the JSON-encoded series (ignoring errors for hot-path usage).
func (s *Series) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
