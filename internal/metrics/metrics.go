package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

// Metrics holds all Prometheus metrics for the filter pipeline.
type Metrics struct {
	RunsTotal     prometheus.Counter
	FailedRuns    *prometheus.CounterVec // labels: reason
	SamplesTotal  prometheus.Counter
	ReplacedTotal prometheus.Counter
	TogglesTotal  *prometheus.CounterVec // labels: state=on|off
	RunDuration   prometheus.Histogram

	// Indicator state per series after the latest run (0=off, 1=on)
	IndicatorState *prometheus.GaugeVec // labels: series

	SQLiteCommitDur prometheus.Histogram
	RedisPublishDur prometheus.Histogram

	// Circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// Gateway
	WSClients      prometheus.Gauge
	WSDroppedTotal prometheus.Counter
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// uses the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spiketrend_runs_total",
			Help: "Total completed filter runs",
		}),
		FailedRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spiketrend_runs_failed_total",
			Help: "Filter runs that failed (by reason)",
		}, []string{"reason"}),
		SamplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spiketrend_samples_total",
			Help: "Total samples filtered",
		}),
		ReplacedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spiketrend_replaced_samples_total",
			Help: "Samples replaced by their local mean",
		}),
		TogglesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spiketrend_toggles_total",
			Help: "Indicator toggle events emitted (by new state)",
		}, []string{"state"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spiketrend_run_duration_seconds",
			Help:    "Filter run latency (denoise and trend detection)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),

		IndicatorState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "spiketrend_indicator_state",
			Help: "Indicator state after the latest run (0=off, 1=on)",
		}, []string{"series"}),

		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spiketrend_sqlite_commit_duration_seconds",
			Help:    "SQLite run commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spiketrend_redis_publish_duration_seconds",
			Help:    "Redis toggle publish latency",
			Buckets: prometheus.DefBuckets,
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spiketrend_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spiketrend_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spiketrend_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		WSDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spiketrend_ws_dropped_total",
			Help: "Messages dropped for slow WebSocket clients",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.FailedRuns,
		m.SamplesTotal,
		m.ReplacedTotal,
		m.TogglesTotal,
		m.RunDuration,
		m.IndicatorState,
		m.SQLiteCommitDur,
		m.RedisPublishDur,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.WSClients,
		m.WSDroppedTotal,
	)

	return m
}

// ObserveBreaker records a breaker transition.
func (m *Metrics) ObserveBreaker(from, to gobreaker.State) {
	switch to {
	case gobreaker.StateClosed:
		m.RedisCircuitBreakerState.Set(0)
	case gobreaker.StateOpen:
		m.RedisCircuitBreakerState.Set(1)
		m.RedisCircuitBreakerTrips.Inc()
	case gobreaker.StateHalfOpen:
		m.RedisCircuitBreakerState.Set(2)
	}
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisEnabled   bool      `json:"redis_enabled"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastRunAt      time.Time `json:"last_run_at"`
	LastRunID      string    `json:"last_run_id"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus(redisEnabled bool) *HealthStatus {
	return &HealthStatus{
		RedisEnabled: redisEnabled,
		StartedAt:    time.Now(),
	}
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

// RecordRun marks a completed run.
func (h *HealthStatus) RecordRun(id string, at time.Time) {
	h.mu.Lock()
	h.LastRunID = id
	h.LastRunAt = at
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Either client may be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	redisDown := h.RedisEnabled && !h.RedisConnected
	if redisDown || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if redisDown && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	lastRunAge := ""
	if !h.LastRunAt.IsZero() {
		lastRunAge = time.Since(h.LastRunAt).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisEnabled    bool    `json:"redis_enabled"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastRunID       string  `json:"last_run_id"`
		LastRunAge      string  `json:"last_run_age"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastRunID:       h.LastRunID,
		LastRunAge:      lastRunAge,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Handler returns a mux serving /metrics from g and /healthz from health.
// A nil g uses the default gatherer.
func Handler(health *HealthStatus, g prometheus.Gatherer) *http.ServeMux {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)
	return mux
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus, g prometheus.Gatherer) *Server {
	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: Handler(health, g),
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
