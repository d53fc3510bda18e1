package filter

import "errors"

var (
	// ErrEmptyInput is returned when a mean is requested over zero samples.
	ErrEmptyInput = errors.New("filter: empty input")

	// ErrDegenerateWindow is returned when a local window has no neighbours
	// to average, which only happens for a single-sample sequence.
	ErrDegenerateWindow = errors.New("filter: degenerate window")

	// ErrInvalidParameter is returned for a non-positive window or threshold.
	ErrInvalidParameter = errors.New("filter: invalid parameter")
)
