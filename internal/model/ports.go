package model

import "context"

// ── Storage Port Interfaces ──
// These interfaces decouple the pipeline from concrete storage (SQLite) and
// fan-out (Redis) implementations.

// SeriesReader loads stored series.
type SeriesReader interface {
	// ReadSeries returns the samples of a series in index order.
	ReadSeries(ctx context.Context, name string) ([]float64, error)

	// ListSeries returns the names of all stored series.
	ListSeries(ctx context.Context) ([]string, error)
}

// SeriesWriter stores raw series.
type SeriesWriter interface {
	// SaveSeries replaces any stored samples of the series.
	SaveSeries(ctx context.Context, s Series) error
}

// RunWriter persists completed runs.
type RunWriter interface {
	SaveRun(ctx context.Context, run Run) error
}

// RunReader loads persisted runs.
type RunReader interface {
	// ReadRun returns the run or (nil, nil) when it does not exist.
	ReadRun(ctx context.Context, id string) (*Run, error)
}

// TogglePublisher fans toggle events out to subscribers.
type TogglePublisher interface {
	PublishToggles(ctx context.Context, series string, toggles []Toggle) error
}
