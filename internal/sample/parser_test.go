package sample_test

import (
	"strings"
	"testing"

	"github.com/seclarsen/lagprobe/internal/sample"
)

func TestParseText(t *testing.T) {
	input := strings.Join([]string{
		"# timing capture, 2026-08-12",
		"# target: /search?q=...",
		"3",
		"10.2 11.0 10.7",
		"48.9 51.3 50.0",
	}, "\n")

	reference, probe, err := sample.ParseText(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseText() error = %v", err)
	}

	wantRef := []float64{10.2, 11.0, 10.7}
	wantProbe := []float64{48.9, 51.3, 50.0}
	assertValues(t, "reference", reference, wantRef)
	assertValues(t, "probe", probe, wantProbe)
}

func TestParseTextValuesAcrossLines(t *testing.T) {
	// Values may wrap over multiple lines; only the total count matters.
	input := "2\n1.0\n2.0\n3.0 4.0\n"

	reference, probe, err := sample.ParseText(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseText() error = %v", err)
	}
	assertValues(t, "reference", reference, []float64{1.0, 2.0})
	assertValues(t, "probe", probe, []float64{3.0, 4.0})
}

func TestParseTextErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"comments only", "# nothing here\n"},
		{"bad header", "three\n1 2 3\n4 5 6\n"},
		{"zero count", "0\n"},
		{"too few values", "3\n1 2 3\n4 5\n"},
		{"too many values", "2\n1 2\n3 4 5\n"},
		{"negative value", "2\n1 -2\n3 4\n"},
		{"not a number", "2\n1 x\n3 4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := sample.ParseText(strings.NewReader(tt.input)); err == nil {
				t.Errorf("ParseText(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	data := []byte(`{"reference": [10.2, 11.0], "probe": [48.9, 51.3, 50.0]}`)

	reference, probe, err := sample.ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	assertValues(t, "reference", reference, []float64{10.2, 11.0})
	assertValues(t, "probe", probe, []float64{48.9, 51.3, 50.0})
}

func TestParseJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"reference": [1, 2}`},
		{"missing probe", `{"reference": [1, 2]}`},
		{"missing reference", `{"probe": [1, 2]}`},
		{"empty side", `{"reference": [], "probe": [1]}`},
		{"not an array", `{"reference": 5, "probe": [1]}`},
		{"non-numeric element", `{"reference": [1, "fast"], "probe": [1]}`},
		{"negative element", `{"reference": [1, -3], "probe": [1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := sample.ParseJSON([]byte(tt.data)); err == nil {
				t.Errorf("ParseJSON(%s) succeeded, want error", tt.data)
			}
		})
	}
}

func assertValues(t *testing.T, label string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %d values, want %d", label, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s[%d] = %g, want %g", label, i, got[i], want[i])
		}
	}
}
