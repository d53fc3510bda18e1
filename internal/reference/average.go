package reference

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
)

// MovingAverage is a trailing rolling mean. The first period-1 outputs are
// NaN.
type MovingAverage struct {
	period int
}

// NewMovingAverage creates a rolling mean over period samples (period ≥ 2).
func NewMovingAverage(period int) (*MovingAverage, error) {
	if period < 2 {
		return nil, fmt.Errorf("moving average period must be ≥ 2, got %d", period)
	}
	return &MovingAverage{period: period}, nil
}

func (m *MovingAverage) Name() string { return fmt.Sprintf("SMA_%d", m.period) }

func (m *MovingAverage) Smooth(values []float64) ([]float64, error) {
	if len(values) < m.period {
		return undefined(len(values)), nil
	}
	return warmup(talib.Sma(values, m.period), m.period), nil
}

// EMA is an exponential moving average seeded with the simple mean of the
// first period samples.
type EMA struct {
	period int
}

// NewEMA creates an EMA over period samples (period ≥ 2).
func NewEMA(period int) (*EMA, error) {
	if period < 2 {
		return nil, fmt.Errorf("ema period must be ≥ 2, got %d", period)
	}
	return &EMA{period: period}, nil
}

func (e *EMA) Name() string { return fmt.Sprintf("EMA_%d", e.period) }

func (e *EMA) Smooth(values []float64) ([]float64, error) {
	if len(values) < e.period {
		return undefined(len(values)), nil
	}
	return warmup(talib.Ema(values, e.period), e.period), nil
}

// warmup marks the lookback positions talib leaves at zero as undefined.
func warmup(out []float64, period int) []float64 {
	for i := 0; i < period-1 && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
