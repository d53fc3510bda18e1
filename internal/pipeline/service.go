// Package pipeline runs one filter pass end to end: denoise and trend
// detection, reference smoothers, persistence, toggle fan-out, alerts and
// metrics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"spiketrend/internal/filter"
	"spiketrend/internal/logger"
	"spiketrend/internal/metrics"
	"spiketrend/internal/model"
	"spiketrend/internal/notification"
	"spiketrend/internal/reference"
	"spiketrend/internal/report"
)

// Deps are the optional collaborators of a Service. Nil fields are skipped.
type Deps struct {
	Series    model.SeriesWriter
	Runs      model.RunWriter
	Publisher model.TogglePublisher
	Notifier  notification.Notifier
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
	Smoothers []reference.Smoother

	// OnToggle receives every toggle after the run is stored.
	OnToggle func(model.Toggle)

	Logger *slog.Logger
	Now    func() time.Time
}

// Options tune the run itself.
type Options struct {
	// Workers > 1 splits the denoise pass across goroutines.
	Workers int
	// SaveSeries stores the raw input alongside the run.
	SaveSeries bool
}

// Outcome is a completed run plus the reference curves computed on its
// raw input.
type Outcome struct {
	Run        model.Run
	References []report.Curve
}

// Service is the orchestrator for filter runs.
type Service struct {
	cfg  filter.Config
	opts Options
	deps Deps
	log  *slog.Logger
}

// New creates a Service with default run parameters cfg.
func New(cfg filter.Config, opts Options, deps Deps) (*Service, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{cfg: cfg, opts: opts, deps: deps, log: deps.Logger}, nil
}

// Config returns the default run parameters.
func (s *Service) Config() filter.Config { return s.cfg }

// Process runs series with the default parameters.
func (s *Service) Process(ctx context.Context, series model.Series) (*Outcome, error) {
	return s.ProcessWith(ctx, series, s.cfg)
}

// ProcessWith runs series with cfg. The filter result is returned even when
// a downstream collaborator fails; storage failures are returned as errors,
// publish and notify failures are only logged.
func (s *Service) ProcessWith(ctx context.Context, series model.Series, cfg filter.Config) (*Outcome, error) {
	started := s.deps.Now()
	clock := time.Now()
	runID := logger.GenerateRunID(series.Name, started)
	ctx = logger.WithRunID(ctx, runID)

	cfg = cfg.Normalize()
	res, err := filter.RunContext(ctx, series.Values, cfg, s.opts.Workers)
	if err != nil {
		s.fail(ctx, failReason(err), err)
		return nil, err
	}
	elapsed := time.Since(clock)

	run := model.Run{
		ID:             runID,
		Series:         series.Name,
		Window:         cfg.Window,
		Threshold:      cfg.Threshold,
		TrendWindow:    cfg.TrendWindow,
		TrendThreshold: cfg.TrendThreshold,
		Raw:            series.Values,
		Cleaned:        res.Cleaned,
		Replaced:       len(res.Replacements),
		GlobalMean:     res.GlobalMean,
		FinalState:     res.FinalState,
		Toggles:        toToggles(runID, series.Name, res, started),
		StartedAt:      started,
		Duration:       elapsed,
	}
	s.observe(run)

	s.log.InfoContext(ctx, "run complete", append(logger.LogWithRun(ctx),
		"series", run.Series,
		"samples", len(run.Cleaned),
		"replaced", run.Replaced,
		"toggles", len(run.Toggles),
		"final_state", run.FinalState,
		"duration", elapsed,
	)...)

	out := &Outcome{Run: run, References: s.references(ctx, series.Values)}

	if err := s.persist(ctx, series, run); err != nil {
		s.fail(ctx, "storage", err)
		return out, err
	}
	if s.deps.Health != nil {
		s.deps.Health.RecordRun(runID, started)
	}

	s.fanOut(ctx, run)
	return out, nil
}

func toToggles(runID, series string, res filter.Result, ts time.Time) []model.Toggle {
	toggles := make([]model.Toggle, len(res.Events))
	for i, ev := range res.Events {
		toggles[i] = model.Toggle{
			RunID:  runID,
			Series: series,
			Index:  ev.Index,
			State:  ev.State,
			Value:  res.Cleaned[ev.Index],
			TS:     ts,
		}
	}
	return toggles
}

func (s *Service) references(ctx context.Context, values []float64) []report.Curve {
	curves := make([]report.Curve, 0, len(s.deps.Smoothers))
	for _, sm := range s.deps.Smoothers {
		v, err := sm.Smooth(values)
		if err != nil {
			s.log.WarnContext(ctx, "reference smoother skipped", append(logger.LogWithRun(ctx),
				"smoother", sm.Name(), "error", err)...)
			continue
		}
		curves = append(curves, report.Curve{Name: sm.Name(), Values: v})
	}
	return curves
}

func (s *Service) persist(ctx context.Context, series model.Series, run model.Run) error {
	if s.opts.SaveSeries && s.deps.Series != nil {
		if err := s.deps.Series.SaveSeries(ctx, series); err != nil {
			return fmt.Errorf("save series: %w", err)
		}
	}
	if s.deps.Runs == nil {
		return nil
	}

	start := time.Now()
	if err := s.deps.Runs.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.SQLiteCommitDur.Observe(time.Since(start).Seconds())
	}
	return nil
}

func (s *Service) fanOut(ctx context.Context, run model.Run) {
	if len(run.Toggles) == 0 {
		return
	}

	if s.deps.Publisher != nil {
		start := time.Now()
		if err := s.deps.Publisher.PublishToggles(ctx, run.Series, run.Toggles); err != nil {
			s.log.WarnContext(ctx, "toggle publish failed", append(logger.LogWithRun(ctx), "error", err)...)
		} else if s.deps.Metrics != nil {
			s.deps.Metrics.RedisPublishDur.Observe(time.Since(start).Seconds())
		}
	}

	for _, tg := range run.Toggles {
		if s.deps.OnToggle != nil {
			s.deps.OnToggle(tg)
		}
		if s.deps.Notifier != nil {
			if err := s.deps.Notifier.Send(ctx, notification.AlertForToggle(tg)); err != nil {
				s.log.WarnContext(ctx, "toggle alert failed", append(logger.LogWithRun(ctx),
					"index", tg.Index, "error", err)...)
			}
		}
	}
}

func (s *Service) observe(run model.Run) {
	m := s.deps.Metrics
	if m == nil {
		return
	}
	m.RunsTotal.Inc()
	m.SamplesTotal.Add(float64(len(run.Cleaned)))
	m.ReplacedTotal.Add(float64(run.Replaced))
	m.RunDuration.Observe(run.Duration.Seconds())
	for _, tg := range run.Toggles {
		if tg.State {
			m.TogglesTotal.WithLabelValues("on").Inc()
		} else {
			m.TogglesTotal.WithLabelValues("off").Inc()
		}
	}
	state := 0.0
	if run.FinalState {
		state = 1
	}
	m.IndicatorState.WithLabelValues(run.Series).Set(state)
}

func (s *Service) fail(ctx context.Context, reason string, err error) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.FailedRuns.WithLabelValues(reason).Inc()
	}
	s.log.ErrorContext(ctx, "run failed", append(logger.LogWithRun(ctx), "reason", reason, "error", err)...)
}

func failReason(err error) string {
	switch {
	case errors.Is(err, filter.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, filter.ErrDegenerateWindow):
		return "degenerate_window"
	case errors.Is(err, filter.ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "other"
}

// SeriesName returns name, or a generated one when name is empty.
func SeriesName(name string, ts time.Time) string {
	if name != "" {
		return name
	}
	return "series-" + strconv.FormatInt(ts.Unix(), 10)
}
