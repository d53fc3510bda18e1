package reference

import (
	"errors"
	"math"
	"testing"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func TestMovingAverage_Period3(t *testing.T) {
	sma, err := NewMovingAverage(3)
	if err != nil {
		t.Fatal(err)
	}
	got, err := sma.Smooth([]float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Errorf("warm-up should be NaN, got %v", got[:2])
	}
	for i, want := range []float64{2, 3, 4, 5} {
		assertClose(t, "SMA(3)", got[i+2], want, 1e-9)
	}
	if sma.Name() != "SMA_3" {
		t.Errorf("name: %s", sma.Name())
	}
}

func TestMovingAverage_ShortSeries(t *testing.T) {
	sma, _ := NewMovingAverage(11)
	got, err := sma.Smooth([]float64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got {
		if !math.IsNaN(v) {
			t.Errorf("index %d: expected NaN, got %g", i, v)
		}
	}
}

func TestEMA_Period3(t *testing.T) {
	// multiplier = 2/(3+1) = 0.5, seeded with SMA of the first three samples:
	// 102, then 103*0.5+102*0.5 = 102.5, then 105*0.5+102.5*0.5 = 103.75
	ema, err := NewEMA(3)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := ema.Smooth([]float64{100, 102, 104, 103, 105})
	for i, want := range []float64{102, 102.5, 103.75} {
		assertClose(t, "EMA(3)", got[i+2], want, 1e-9)
	}
}

func TestSavitzkyGolay_PreservesQuadratic(t *testing.T) {
	sg, err := NewSavitzkyGolay(11, 2)
	if err != nil {
		t.Fatal(err)
	}
	values := make([]float64, 25)
	for i := range values {
		x := float64(i)
		values[i] = 2*x*x - 3*x + 1
	}
	got, err := sg.Smooth(values)
	if err != nil {
		t.Fatal(err)
	}
	for i := range values {
		assertClose(t, "quadratic", got[i], values[i], 1e-6)
	}
}

func TestSavitzkyGolay_SmoothsSpike(t *testing.T) {
	sg, _ := NewSavitzkyGolay(5, 1)
	values := []float64{8, 8, 8, 8, 8, 40, 8, 8, 8, 8, 8}
	got, err := sg.Smooth(values)
	if err != nil {
		t.Fatal(err)
	}
	// Order 1 over 5 samples reduces to a centred 5-point mean.
	assertClose(t, "spike", got[5], (8*4+40)/5.0, 1e-9)
	assertClose(t, "far from spike", got[0], 8, 1e-9)
}

func TestSavitzkyGolay_Errors(t *testing.T) {
	if _, err := NewSavitzkyGolay(10, 2); err == nil {
		t.Error("even window should be rejected")
	}
	if _, err := NewSavitzkyGolay(5, 5); err == nil {
		t.Error("order ≥ window should be rejected")
	}
	sg, _ := NewSavitzkyGolay(11, 2)
	if _, err := sg.Smooth(make([]float64, 5)); !errors.Is(err, ErrSeriesTooShort) {
		t.Errorf("expected ErrSeriesTooShort, got %v", err)
	}
}

func TestParseSpecs(t *testing.T) {
	specs := ParseSpecs("SMA:11, ema:9 ,SAVGOL:7:3,bad,RSI:x,SAVGOL:9")
	want := []Spec{
		{Type: "SMA", Period: 11},
		{Type: "EMA", Period: 9},
		{Type: "SAVGOL", Period: 7, Order: 3},
		{Type: "SAVGOL", Period: 9, Order: 2},
	}
	if len(specs) != len(want) {
		t.Fatalf("got %v, want %v", specs, want)
	}
	for i := range want {
		if specs[i] != want[i] {
			t.Errorf("spec %d: got %+v, want %+v", i, specs[i], want[i])
		}
	}

	if got := ParseSpecs(""); len(got) != len(DefaultSpecs()) {
		t.Errorf("empty input should yield defaults, got %v", got)
	}
	if got := ParseSpecs("junk"); len(got) != len(DefaultSpecs()) {
		t.Errorf("invalid input should yield defaults, got %v", got)
	}
}

func TestBuild(t *testing.T) {
	smoothers, err := Build(DefaultSpecs())
	if err != nil {
		t.Fatal(err)
	}
	names := []string{"SMA_11", "SAVGOL_11_2"}
	for i, sm := range smoothers {
		if sm.Name() != names[i] {
			t.Errorf("smoother %d: got %s, want %s", i, sm.Name(), names[i])
		}
	}

	if _, err := Build([]Spec{{Type: "RSI", Period: 14}}); err == nil {
		t.Error("unknown type should fail")
	}
	if _, err := Build([]Spec{{Type: "SAVGOL", Period: 4, Order: 2}}); err == nil {
		t.Error("even savgol window should fail")
	}
}
