package main

import (
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	in := "day,beer\n0,8\n1, 9\n\n# comment\n2,30\n"
	got, err := readCSV(strings.NewReader(in), 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{8, 9, 30}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestReadCSV_SingleColumnNoHeader(t *testing.T) {
	got, err := readCSV(strings.NewReader("8\n8\n2\n"), 0)
	if err != nil || len(got) != 3 || got[2] != 2 {
		t.Errorf("unexpected result %v, %v", got, err)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	if _, err := readCSV(strings.NewReader("8\nx\n"), 0); err == nil {
		t.Error("expected parse error after the first row")
	}
	if _, err := readCSV(strings.NewReader("8\n"), 2); err == nil {
		t.Error("expected missing column error")
	}
	if _, err := readCSV(strings.NewReader("8\n"), -1); err == nil {
		t.Error("expected negative column error")
	}
}
