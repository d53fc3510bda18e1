package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"spiketrend/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/series.db"
}

// Writer is a single-connection SQLite writer. Every save runs in one
// transaction.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite opened", "path", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS series (
			name  TEXT    NOT NULL,
			idx   INTEGER NOT NULL,
			value REAL    NOT NULL,
			PRIMARY KEY (name, idx)
		);

		CREATE TABLE IF NOT EXISTS filter_runs (
			id              TEXT    PRIMARY KEY,
			series          TEXT    NOT NULL,
			filter_window   INTEGER NOT NULL,
			threshold       REAL    NOT NULL,
			trend_window    INTEGER NOT NULL,
			trend_threshold REAL    NOT NULL,
			samples         INTEGER NOT NULL,
			replaced        INTEGER NOT NULL,
			global_mean     REAL    NOT NULL,
			final_state     INTEGER NOT NULL,
			started_at      INTEGER NOT NULL,
			duration_ms     REAL    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS run_samples (
			run_id  TEXT    NOT NULL,
			idx     INTEGER NOT NULL,
			raw     REAL    NOT NULL,
			cleaned REAL    NOT NULL,
			PRIMARY KEY (run_id, idx)
		);

		CREATE TABLE IF NOT EXISTS toggle_events (
			run_id TEXT    NOT NULL,
			idx    INTEGER NOT NULL,
			state  INTEGER NOT NULL,
			value  REAL    NOT NULL,
			ts     INTEGER NOT NULL,
			PRIMARY KEY (run_id, idx)
		);
	`)
	return err
}

// SaveSeries replaces the stored samples of s.
func (w *Writer) SaveSeries(ctx context.Context, s model.Series) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite save series: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM series WHERE name = ?`, s.Name); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite save series: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO series (name, idx, value) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite save series: %w", err)
	}
	defer stmt.Close()

	for i, v := range s.Values {
		if _, err := stmt.ExecContext(ctx, s.Name, i, v); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite save series: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite save series: %w", err)
	}
	slog.Debug("sqlite saved series", "series", s.Name, "samples", len(s.Values))
	return nil
}

// SaveRun stores the run header, per-sample raw/cleaned values and toggles.
func (w *Writer) SaveRun(ctx context.Context, run model.Run) error {
	start := time.Now()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite save run: %w", err)
	}
	if err := insertRun(ctx, tx, run); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite save run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite save run: %w", err)
	}
	slog.Debug("sqlite saved run", "run_id", run.ID, "samples", len(run.Cleaned), "elapsed", time.Since(start))
	return nil
}

func insertRun(ctx context.Context, tx *sql.Tx, run model.Run) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO filter_runs
			(id, series, filter_window, threshold, trend_window, trend_threshold,
			 samples, replaced, global_mean, final_state, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Series, run.Window, run.Threshold, run.TrendWindow, run.TrendThreshold,
		len(run.Cleaned), run.Replaced, run.GlobalMean, boolToInt(run.FinalState),
		run.StartedAt.UnixNano(), float64(run.Duration.Microseconds())/1000.0)
	if err != nil {
		return err
	}

	samples, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO run_samples (run_id, idx, raw, cleaned) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer samples.Close()

	for i, c := range run.Cleaned {
		raw := c
		if i < len(run.Raw) {
			raw = run.Raw[i]
		}
		if _, err := samples.ExecContext(ctx, run.ID, i, raw, c); err != nil {
			return err
		}
	}

	toggles, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO toggle_events (run_id, idx, state, value, ts) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer toggles.Close()

	for _, tg := range run.Toggles {
		if _, err := toggles.ExecContext(ctx, run.ID, tg.Index, boolToInt(tg.State), tg.Value, tg.TS.UnixNano()); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
