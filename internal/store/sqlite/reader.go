package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spiketrend/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// ErrSeriesNotFound is returned when a series has no stored samples.
var ErrSeriesNotFound = errors.New("series not found")

// Reader provides read-only access to stored series and runs.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	slog.Info("sqlite reader opened", "path", dbPath)
	return &Reader{db: db}, nil
}

// ReadSeries returns the samples of a series ordered by index.
func (r *Reader) ReadSeries(ctx context.Context, name string) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT value FROM series WHERE name = ? ORDER BY idx ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("sqlite query series: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("sqlite scan series: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSeriesNotFound, name)
	}
	return values, nil
}

// ListSeries returns all stored series names in alphabetical order.
func (r *Reader) ListSeries(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT name FROM series ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite list series: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("sqlite scan series name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// ReadRun loads a run with its samples and toggles. Returns nil, nil if the
// run does not exist.
func (r *Reader) ReadRun(ctx context.Context, id string) (*model.Run, error) {
	var (
		run        model.Run
		finalState int
		startedAt  int64
		durationMs float64
		samples    int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, series, filter_window, threshold, trend_window, trend_threshold,
		       samples, replaced, global_mean, final_state, started_at, duration_ms
		FROM filter_runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Series, &run.Window, &run.Threshold, &run.TrendWindow, &run.TrendThreshold,
		&samples, &run.Replaced, &run.GlobalMean, &finalState, &startedAt, &durationMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite read run: %w", err)
	}
	run.FinalState = finalState != 0
	run.StartedAt = time.Unix(0, startedAt).UTC()
	run.Duration = time.Duration(durationMs * float64(time.Millisecond))

	run.Raw = make([]float64, 0, samples)
	run.Cleaned = make([]float64, 0, samples)
	rows, err := r.db.QueryContext(ctx, `
		SELECT raw, cleaned FROM run_samples WHERE run_id = ? ORDER BY idx ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite read run samples: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var raw, cleaned float64
		if err := rows.Scan(&raw, &cleaned); err != nil {
			return nil, fmt.Errorf("sqlite scan run samples: %w", err)
		}
		run.Raw = append(run.Raw, raw)
		run.Cleaned = append(run.Cleaned, cleaned)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	toggles, err := r.readToggles(ctx, run.ID, run.Series)
	if err != nil {
		return nil, err
	}
	run.Toggles = toggles
	return &run, nil
}

func (r *Reader) readToggles(ctx context.Context, runID, series string) ([]model.Toggle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT idx, state, value, ts FROM toggle_events WHERE run_id = ? ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite read toggles: %w", err)
	}
	defer rows.Close()

	var toggles []model.Toggle
	for rows.Next() {
		var (
			tg    model.Toggle
			state int
			ts    int64
		)
		if err := rows.Scan(&tg.Index, &state, &tg.Value, &ts); err != nil {
			return nil, fmt.Errorf("sqlite scan toggles: %w", err)
		}
		tg.RunID = runID
		tg.Series = series
		tg.State = state != 0
		tg.TS = time.Unix(0, ts).UTC()
		toggles = append(toggles, tg)
	}
	return toggles, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
