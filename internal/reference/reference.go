// Package reference provides standard smoothing filters used for
// side-by-side comparison with the spike filter.
//
// All smoothers implement the Smoother interface, receiving the full raw
// series and producing an aligned output. Positions a smoother cannot
// define (for example the warm-up of a moving average) are NaN.
package reference

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Smoother is the interface for all reference filters.
type Smoother interface {
	// Name returns the display name (e.g., "SMA_11", "SAVGOL_11_2").
	Name() string

	// Smooth returns a new slice of len(values); values is not modified.
	Smooth(values []float64) ([]float64, error)
}

// Spec specifies a single reference filter to build.
type Spec struct {
	Type   string // "SMA", "EMA", "SAVGOL"
	Period int    // window length
	Order  int    // polynomial order (SAVGOL only)
}

// DefaultSpecs are the comparison curves drawn by default:
// an 11-sample rolling mean and an order-2 Savitzky-Golay over 11 samples.
func DefaultSpecs() []Spec {
	return []Spec{
		{Type: "SMA", Period: 11},
		{Type: "SAVGOL", Period: 11, Order: 2},
	}
}

// ParseSpecs parses "TYPE:PERIOD[:ORDER],..." into specs.
// Example: "SMA:11,EMA:9,SAVGOL:11:2".
// Invalid entries are skipped; an empty or fully invalid input yields the defaults.
func ParseSpecs(s string) []Spec {
	if strings.TrimSpace(s) == "" {
		return DefaultSpecs()
	}

	var specs []Spec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		tokens := strings.Split(part, ":")
		if len(tokens) < 2 {
			slog.Warn("skipping invalid reference spec", "spec", part)
			continue
		}
		typ := strings.ToUpper(strings.TrimSpace(tokens[0]))
		period, err := strconv.Atoi(strings.TrimSpace(tokens[1]))
		if err != nil || period <= 0 {
			slog.Warn("skipping invalid reference spec", "spec", part)
			continue
		}
		spec := Spec{Type: typ, Period: period}
		if typ == "SAVGOL" {
			spec.Order = 2
			if len(tokens) > 2 {
				order, err := strconv.Atoi(strings.TrimSpace(tokens[2]))
				if err != nil || order < 0 {
					slog.Warn("skipping invalid reference spec", "spec", part)
					continue
				}
				spec.Order = order
			}
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		slog.Warn("no valid reference specs parsed, using defaults", "input", s)
		return DefaultSpecs()
	}
	return specs
}

// Build creates a smoother for every spec.
func Build(specs []Spec) ([]Smoother, error) {
	out := make([]Smoother, 0, len(specs))
	for _, spec := range specs {
		var (
			sm  Smoother
			err error
		)
		switch spec.Type {
		case "SMA":
			sm, err = NewMovingAverage(spec.Period)
		case "EMA":
			sm, err = NewEMA(spec.Period)
		case "SAVGOL":
			sm, err = NewSavitzkyGolay(spec.Period, spec.Order)
		default:
			err = fmt.Errorf("unknown reference filter %q", spec.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("reference %s:%d: %w", spec.Type, spec.Period, err)
		}
		out = append(out, sm)
	}
	return out, nil
}
