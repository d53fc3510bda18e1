package filter

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Replacement records a sample that the denoising pass replaced.
type Replacement struct {
	Index       int     `json:"index"`
	Original    float64 `json:"original"`
	Replacement float64 `json:"replacement"`
}

// Denoise returns a copy of values in which every sample that deviates from
// its local window mean is replaced by that mean. values is never modified.
func Denoise(values []float64, window int, threshold float64) ([]float64, error) {
	out, _, err := DenoiseWithReplacements(values, window, threshold)
	return out, err
}

// DenoiseWithReplacements is Denoise plus the list of replaced samples in
// index order.
//
// Every local mean is taken over the original sequence, so the result does
// not depend on iteration order.
func DenoiseWithReplacements(values []float64, window int, threshold float64) ([]float64, []Replacement, error) {
	if err := validateDenoise(window, threshold); err != nil {
		return nil, nil, err
	}

	out := make([]float64, len(values))
	copy(out, values)

	var replaced []Replacement
	for i := range values {
		r, ok, err := denoiseAt(values, i, window, threshold)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			out[i] = r.Replacement
			replaced = append(replaced, r)
		}
	}
	return out, replaced, nil
}

// DenoiseParallel computes the same result as Denoise, splitting the index
// range into contiguous chunks processed by at most workers goroutines.
// Workers only read values and only write their own output range.
func DenoiseParallel(ctx context.Context, values []float64, window int, threshold float64, workers int) ([]float64, error) {
	out, _, err := denoiseParallel(ctx, values, window, threshold, workers)
	return out, err
}

func denoiseParallel(ctx context.Context, values []float64, window int, threshold float64, workers int) ([]float64, []Replacement, error) {
	if err := validateDenoise(window, threshold); err != nil {
		return nil, nil, err
	}
	if workers <= 0 {
		return nil, nil, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidParameter, workers)
	}

	out := make([]float64, len(values))
	copy(out, values)
	if len(values) == 0 {
		return out, nil, nil
	}

	chunk := (len(values) + workers - 1) / workers
	perChunk := make([][]Replacement, (len(values)+chunk-1)/chunk)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for k := range perChunk {
		lo, hi := k*chunk, min((k+1)*chunk, len(values))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				r, ok, err := denoiseAt(values, i, window, threshold)
				if err != nil {
					return err
				}
				if ok {
					out[i] = r.Replacement
					perChunk[k] = append(perChunk[k], r)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var replaced []Replacement
	for _, rs := range perChunk {
		replaced = append(replaced, rs...)
	}
	return out, replaced, nil
}

func denoiseAt(values []float64, i, window int, threshold float64) (Replacement, bool, error) {
	m, err := LocalWindowMean(values, i, window)
	if err != nil {
		return Replacement{}, false, err
	}
	if !IsDeviated(values[i], m, threshold) {
		return Replacement{}, false, nil
	}
	return Replacement{Index: i, Original: values[i], Replacement: m}, true, nil
}

// validateDenoise also rejects window 1: its right span is always empty, so
// index 0 never has a neighbour to average.
func validateDenoise(window int, threshold float64) error {
	if err := validate(window, threshold); err != nil {
		return err
	}
	if window == 1 {
		return fmt.Errorf("%w: denoise window 1 leaves index 0 without neighbours", ErrDegenerateWindow)
	}
	return nil
}

func validate(window int, threshold float64) error {
	if window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %d", ErrInvalidParameter, window)
	}
	if !(threshold > 0) {
		return fmt.Errorf("%w: threshold must be positive, got %g", ErrInvalidParameter, threshold)
	}
	return nil
}
