package synth

import "testing"

func TestGenerate_DefaultLayout(t *testing.T) {
	values, err := Generate(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 1500 {
		t.Fatalf("len: got %d, want 1500", len(values))
	}

	for i, v := range RampDown {
		if values[250+i] != v || values[1250+i] != v {
			t.Fatalf("ramp down mismatch at offset %d", i)
		}
	}
	for i, v := range RampUp {
		if values[350+i] != v || values[1350+i] != v {
			t.Fatalf("ramp up mismatch at offset %d", i)
		}
	}
	for _, i := range []int{400, 450, 1400, 1450} {
		if values[i] != 0 {
			t.Errorf("index %d: expected noise 0, got %g", i, values[i])
		}
	}
	if values[150] != 15 || values[1150] != 15 {
		t.Error("expected noise 15 at 150 and 1150")
	}

	// Baseline samples stay in [8, 10).
	for _, i := range []int{0, 100, 500, 999, 1499} {
		if values[i] != 8 && values[i] != 9 {
			t.Errorf("index %d: baseline %g outside {8, 9}", i, values[i])
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, _ := Generate(DefaultConfig())
	b, _ := Generate(DefaultConfig())
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("index %d differs: %g vs %g", i, a[i], b[i])
		}
	}
}

func TestGenerate_Errors(t *testing.T) {
	if _, err := Generate(Config{Length: 0, BaseLow: 8, BaseHi: 10}); err == nil {
		t.Error("zero length should fail")
	}
	if _, err := Generate(Config{Length: 10, BaseLow: 8, BaseHi: 8}); err == nil {
		t.Error("empty baseline should fail")
	}
	cfg := Config{Length: 10, BaseLow: 8, BaseHi: 10, Inject: []Injection{{Offset: 5, Values: RampUp}}}
	if _, err := Generate(cfg); err == nil {
		t.Error("out-of-range injection should fail")
	}
}
