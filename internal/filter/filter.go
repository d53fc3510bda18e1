// Package filter removes localized spikes and dips from a one-dimensional
// series and derives an on/off trend indicator from the cleaned result.
//
// A run is two passes over a fully materialized sequence:
//
//	raw → Denoise (local window mean + deviation test) → cleaned
//	cleaned → trend pass (forward window vs global mean) → toggle events
//
// Both passes are deterministic and allocate their output; inputs are
// never modified.
package filter

import (
	"context"
	"fmt"
)

// Config holds the run parameters. Smoothing and trend sensitivity are kept
// separate even though the defaults share a threshold.
type Config struct {
	Window         int     `json:"window" yaml:"window"`
	Threshold      float64 `json:"threshold" yaml:"threshold"`
	TrendWindow    int     `json:"trend_window" yaml:"trend_window"`
	TrendThreshold float64 `json:"trend_threshold" yaml:"trend_threshold"`
}

// DefaultConfig is window 4, threshold 1.3 with the default trend window.
func DefaultConfig() Config {
	return Config{
		Window:      4,
		Threshold:   1.3,
		TrendWindow: DefaultTrendWindow,
	}
}

// Normalize fills the trend parameters left at zero.
func (c Config) Normalize() Config {
	if c.TrendWindow == 0 {
		c.TrendWindow = DefaultTrendWindow
	}
	if c.TrendThreshold == 0 {
		c.TrendThreshold = c.Threshold
	}
	return c
}

// Validate checks that every window and threshold is positive and that the
// denoise window is at least 2.
func (c Config) Validate() error {
	c = c.Normalize()
	if err := validateDenoise(c.Window, c.Threshold); err != nil {
		return err
	}
	if err := validate(c.TrendWindow, c.TrendThreshold); err != nil {
		return fmt.Errorf("trend: %w", err)
	}
	return nil
}

// Result is the outcome of one run.
type Result struct {
	Cleaned      []float64
	Replacements []Replacement
	GlobalMean   float64
	Events       []ToggleEvent
	FinalState   bool
}

// Run denoises values and runs the trend pass over the cleaned sequence.
func Run(values []float64, cfg Config) (Result, error) {
	return RunContext(context.Background(), values, cfg, 1)
}

// RunContext is Run with the denoise pass split across workers goroutines
// when workers > 1. The result is identical to Run.
func RunContext(ctx context.Context, values []float64, cfg Config, workers int) (Result, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if len(values) == 0 {
		return Result{}, ErrEmptyInput
	}

	var (
		cleaned  []float64
		replaced []Replacement
		err      error
	)
	if workers > 1 {
		cleaned, replaced, err = denoiseParallel(ctx, values, cfg.Window, cfg.Threshold, workers)
	} else {
		cleaned, replaced, err = DenoiseWithReplacements(values, cfg.Window, cfg.Threshold)
	}
	if err != nil {
		return Result{}, fmt.Errorf("denoise: %w", err)
	}

	globalMean, err := Mean(cleaned)
	if err != nil {
		return Result{}, err
	}
	events, final, err := DetectTrendEventsFrom(cleaned, cfg.TrendThreshold, cfg.TrendWindow, false)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Cleaned:      cleaned,
		Replacements: replaced,
		GlobalMean:   globalMean,
		Events:       events,
		FinalState:   final,
	}, nil
}
