package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"spiketrend/internal/model"
)

func openPair(t *testing.T) (*Writer, *Reader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "series.db")
	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return w, r
}

// ────────────────────────────────────────────────────────────
// Series
// ────────────────────────────────────────────────────────────

func TestSaveSeries_RoundTrip(t *testing.T) {
	w, r := openPair(t)
	ctx := context.Background()

	if err := w.SaveSeries(ctx, model.Series{Name: "beer", Values: []float64{8, 9, 2, 10}}); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}
	got, err := r.ReadSeries(ctx, "beer")
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	want := []float64{8, 9, 2, 10}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSaveSeries_Replaces(t *testing.T) {
	w, r := openPair(t)
	ctx := context.Background()

	w.SaveSeries(ctx, model.Series{Name: "beer", Values: []float64{1, 2, 3, 4, 5}})
	w.SaveSeries(ctx, model.Series{Name: "beer", Values: []float64{7, 7}})

	got, err := r.ReadSeries(ctx, "beer")
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(got) != 2 || got[0] != 7 {
		t.Errorf("expected [7 7], got %v", got)
	}
}

func TestReadSeries_Missing(t *testing.T) {
	_, r := openPair(t)
	_, err := r.ReadSeries(context.Background(), "nope")
	if !errors.Is(err, ErrSeriesNotFound) {
		t.Errorf("expected ErrSeriesNotFound, got %v", err)
	}
}

func TestListSeries(t *testing.T) {
	w, r := openPair(t)
	ctx := context.Background()
	w.SaveSeries(ctx, model.Series{Name: "wine", Values: []float64{1}})
	w.SaveSeries(ctx, model.Series{Name: "beer", Values: []float64{1, 2}})

	names, err := r.ListSeries(ctx)
	if err != nil {
		t.Fatalf("ListSeries: %v", err)
	}
	if len(names) != 2 || names[0] != "beer" || names[1] != "wine" {
		t.Errorf("expected [beer wine], got %v", names)
	}
}

// ────────────────────────────────────────────────────────────
// Runs
// ────────────────────────────────────────────────────────────

func TestSaveRun_RoundTrip(t *testing.T) {
	w, r := openPair(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)

	run := model.Run{
		ID:             "beer-1",
		Series:         "beer",
		Window:         4,
		Threshold:      1.3,
		TrendWindow:    2,
		TrendThreshold: 1.3,
		Raw:            []float64{8, 8, 30, 8},
		Cleaned:        []float64{8, 8, 8, 8},
		Replaced:       1,
		GlobalMean:     8,
		FinalState:     true,
		Toggles: []model.Toggle{
			{Index: 1, State: true, Value: 8, TS: started},
		},
		StartedAt: started,
		Duration:  1500 * time.Microsecond,
	}
	if err := w.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := r.ReadRun(ctx, "beer-1")
	if err != nil {
		t.Fatalf("ReadRun: %v", err)
	}
	if got == nil {
		t.Fatal("expected run, got nil")
	}
	if got.Series != "beer" || got.Window != 4 || got.Threshold != 1.3 || got.TrendWindow != 2 {
		t.Errorf("header mismatch: %+v", got)
	}
	if got.Replaced != 1 || !got.FinalState || got.GlobalMean != 8 {
		t.Errorf("summary mismatch: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("expected started %v, got %v", started, got.StartedAt)
	}
	if got.Duration != 1500*time.Microsecond {
		t.Errorf("expected duration 1.5ms, got %v", got.Duration)
	}
	if len(got.Raw) != 4 || got.Raw[2] != 30 || got.Cleaned[2] != 8 {
		t.Errorf("samples mismatch: raw=%v cleaned=%v", got.Raw, got.Cleaned)
	}
	if len(got.Toggles) != 1 {
		t.Fatalf("expected 1 toggle, got %d", len(got.Toggles))
	}
	tg := got.Toggles[0]
	if tg.Index != 1 || !tg.State || tg.RunID != "beer-1" || tg.Series != "beer" {
		t.Errorf("toggle mismatch: %+v", tg)
	}
}

func TestReadRun_Missing(t *testing.T) {
	_, r := openPair(t)
	got, err := r.ReadRun(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil run, got %+v", got)
	}
}
