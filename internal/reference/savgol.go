package reference

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSeriesTooShort is returned when the series is shorter than the window.
var ErrSeriesTooShort = errors.New("series shorter than filter window")

// SavitzkyGolay fits a least-squares polynomial of the given order to each
// window and takes its value at the window centre. The first and last
// window/2 samples are taken from the polynomial fitted to the first and
// last full window.
type SavitzkyGolay struct {
	window int
	order  int
	half   int
	design *mat.Dense // rows x^0..x^order for x in [-half, half]
}

// NewSavitzkyGolay creates a filter with an odd window larger than order.
func NewSavitzkyGolay(window, order int) (*SavitzkyGolay, error) {
	if window < 1 || window%2 == 0 {
		return nil, fmt.Errorf("savgol window must be a positive odd number, got %d", window)
	}
	if order < 0 || order >= window {
		return nil, fmt.Errorf("savgol order must be in [0, %d), got %d", window, order)
	}

	half := window / 2
	design := mat.NewDense(window, order+1, nil)
	for r := 0; r < window; r++ {
		x := float64(r - half)
		for k := 0; k <= order; k++ {
			design.Set(r, k, math.Pow(x, float64(k)))
		}
	}
	return &SavitzkyGolay{window: window, order: order, half: half, design: design}, nil
}

func (s *SavitzkyGolay) Name() string { return fmt.Sprintf("SAVGOL_%d_%d", s.window, s.order) }

func (s *SavitzkyGolay) Smooth(values []float64) ([]float64, error) {
	n := len(values)
	if n < s.window {
		return nil, fmt.Errorf("%w: %d < %d", ErrSeriesTooShort, n, s.window)
	}
	out := make([]float64, n)

	first, err := s.fit(values[:s.window])
	if err != nil {
		return nil, err
	}
	for i := 0; i < s.half; i++ {
		out[i] = evalPoly(first, float64(i-s.half))
	}

	for i := s.half; i < n-s.half; i++ {
		c, err := s.fit(values[i-s.half : i+s.half+1])
		if err != nil {
			return nil, err
		}
		out[i] = c.AtVec(0)
	}

	start := n - s.window
	last, err := s.fit(values[start:])
	if err != nil {
		return nil, err
	}
	for i := n - s.half; i < n; i++ {
		out[i] = evalPoly(last, float64(i-start-s.half))
	}
	return out, nil
}

// fit returns the polynomial coefficients (lowest order first) for one window.
func (s *SavitzkyGolay) fit(window []float64) (*mat.VecDense, error) {
	y := mat.NewVecDense(len(window), append([]float64(nil), window...))
	var c mat.VecDense
	if err := c.SolveVec(s.design, y); err != nil {
		return nil, fmt.Errorf("savgol fit: %w", err)
	}
	return &c, nil
}

func evalPoly(c *mat.VecDense, x float64) float64 {
	var v float64
	for k := c.Len() - 1; k >= 0; k-- {
		v = v*x + c.AtVec(k)
	}
	return v
}
