// Package synth builds synthetic test series: a random integer baseline with
// deliberately injected ramps and single-sample noise.
package synth

import (
	"fmt"
	"math/rand"
)

// Shapes of the injected ramps.
var (
	RampDown = []float64{7, 6, 7, 5, 4, 3, 2, 4, 2, 1, 3, 1, 0}
	RampUp   = []float64{17, 16, 17, 15, 14, 13, 12, 14, 12, 11, 13, 11, 10}
)

// Injection overwrites Values starting at Offset.
type Injection struct {
	Offset int
	Values []float64
}

// Config describes a synthetic series.
type Config struct {
	Length  int
	Seed    int64
	BaseLow int // inclusive
	BaseHi  int // exclusive
	Inject  []Injection
}

// DefaultConfig is the beer series layout: 1500 samples of 8 or 9,
// two ramp-down/ramp-up pairs and isolated noise samples.
func DefaultConfig() Config {
	cfg := Config{
		Length:  1500,
		Seed:    17863,
		BaseLow: 8,
		BaseHi:  10,
	}
	for _, base := range []int{0, 1000} {
		cfg.Inject = append(cfg.Inject,
			Injection{Offset: base + 250, Values: RampDown},
			Injection{Offset: base + 350, Values: RampUp},
			Injection{Offset: base + 400, Values: []float64{0}},
			Injection{Offset: base + 450, Values: []float64{0}},
			Injection{Offset: base + 150, Values: []float64{15}},
		)
	}
	return cfg
}

// Generate builds the series described by cfg. The same seed always yields
// the same series.
func Generate(cfg Config) ([]float64, error) {
	if cfg.Length <= 0 {
		return nil, fmt.Errorf("synth: length must be positive, got %d", cfg.Length)
	}
	if cfg.BaseHi <= cfg.BaseLow {
		return nil, fmt.Errorf("synth: empty baseline range [%d, %d)", cfg.BaseLow, cfg.BaseHi)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	out := make([]float64, cfg.Length)
	for i := range out {
		out[i] = float64(cfg.BaseLow + rng.Intn(cfg.BaseHi-cfg.BaseLow))
	}

	for _, inj := range cfg.Inject {
		if inj.Offset < 0 || inj.Offset+len(inj.Values) > cfg.Length {
			return nil, fmt.Errorf("synth: injection at %d (len %d) outside series of %d",
				inj.Offset, len(inj.Values), cfg.Length)
		}
		copy(out[inj.Offset:], inj.Values)
	}
	return out, nil
}
