package gateway

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// LatencyTracker keeps the last N toggle-to-emit latencies (ms) and reports
// percentiles. Safe for concurrent use.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
}

// NewLatencyTracker creates a tracker that holds the last capacity samples.
func NewLatencyTracker(capacity int) *LatencyTracker {
	if capacity <= 0 {
		capacity = 10000
	}
	return &LatencyTracker{samples: make([]float64, capacity)}
}

// Record adds a latency sample in milliseconds.
func (lt *LatencyTracker) Record(latencyMs float64) {
	lt.mu.Lock()
	lt.samples[lt.next] = latencyMs
	lt.next++
	if lt.next == len(lt.samples) {
		lt.next = 0
		lt.full = true
	}
	lt.mu.Unlock()
}

// Percentiles returns p50, p95, p99 in milliseconds, or zeros without samples.
func (lt *LatencyTracker) Percentiles() (p50, p95, p99 float64) {
	lt.mu.Lock()
	sorted := append([]float64(nil), lt.samples[:lt.count()]...)
	lt.mu.Unlock()

	if len(sorted) == 0 {
		return 0, 0, 0
	}
	sort.Float64s(sorted)
	return stat.Quantile(0.50, stat.LinInterp, sorted, nil),
		stat.Quantile(0.95, stat.LinInterp, sorted, nil),
		stat.Quantile(0.99, stat.LinInterp, sorted, nil)
}

// Count returns the number of samples held.
func (lt *LatencyTracker) Count() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.count()
}

func (lt *LatencyTracker) count() int {
	if lt.full {
		return len(lt.samples)
	}
	return lt.next
}
