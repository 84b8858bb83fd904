package detector_test

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/seclarsen/lagprobe/internal/bootstrap"
	"github.com/seclarsen/lagprobe/internal/detector"
	"github.com/seclarsen/lagprobe/internal/metrics"
	"github.com/seclarsen/lagprobe/internal/sample"
)

func newDetector(t *testing.T, opt detector.Options) *detector.Detector {
	t.Helper()
	if opt.Engine == nil {
		engine, err := bootstrap.NewEngine(500, 0.01, rand.New(rand.NewSource(42)))
		if err != nil {
			t.Fatalf("NewEngine() error = %v", err)
		}
		opt.Engine = engine
	}
	d, err := detector.New(opt)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRunIdenticalConstantsNotRejectedAtCap(t *testing.T) {
	d := newDetector(t, detector.Options{})
	src := sample.NewQueueSource(constant(5, 60), constant(5, 60))

	out, err := d.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Verdict != detector.VerdictNotRejected {
		t.Errorf("Verdict = %q, want %q", out.Verdict, detector.VerdictNotRejected)
	}
	if out.Samples != 60 {
		t.Errorf("Samples = %d, want 60 (terminated at the cap)", out.Samples)
	}
	if out.RunID == "" {
		t.Errorf("RunID is empty")
	}
}

func TestRunSeparatedConstantsRejectedEarly(t *testing.T) {
	d := newDetector(t, detector.Options{})
	src := sample.NewQueueSource(constant(100, 60), constant(0, 60))

	out, err := d.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Verdict != detector.VerdictRejected {
		t.Errorf("Verdict = %q, want %q", out.Verdict, detector.VerdictRejected)
	}
	if out.Samples < 4 || out.Samples > 60 {
		t.Errorf("Samples = %d, want within [4, 60]", out.Samples)
	}
	// Constant groups decide on the very first test.
	if out.Samples != 4 {
		t.Errorf("Samples = %d, want 4 for zero-variance groups", out.Samples)
	}
}

func TestRunInsufficientSourceFailsBeforeConsuming(t *testing.T) {
	d := newDetector(t, detector.Options{})
	src := sample.NewQueueSource(constant(1, 3), constant(1, 3))

	_, err := d.Run(context.Background(), src)
	if !errors.Is(err, detector.ErrInsufficientData) {
		t.Fatalf("Run() error = %v, want ErrInsufficientData", err)
	}

	ref, probe := src.Available()
	if ref != 3 || probe != 3 {
		t.Errorf("Available() = (%d, %d) after failed run, want (3, 3) untouched", ref, probe)
	}
}

func TestRunChecksBothSides(t *testing.T) {
	d := newDetector(t, detector.Options{})

	// Reference side is flush, probe side is short: must still refuse.
	src := sample.NewQueueSource(constant(1, 60), constant(1, 10))
	if _, err := d.Run(context.Background(), src); !errors.Is(err, detector.ErrInsufficientData) {
		t.Errorf("Run() error = %v, want ErrInsufficientData for short probe side", err)
	}
}

func TestRunRecordsMeasurements(t *testing.T) {
	collector := metrics.NewCollector()
	d := newDetector(t, detector.Options{Collector: collector})
	src := sample.NewQueueSource(constant(100, 60), constant(0, 60))

	out, err := d.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	s := collector.Summary()
	if s.Reference.Count != int64(out.Samples) {
		t.Errorf("reference recorded = %d, want %d", s.Reference.Count, out.Samples)
	}
	if s.Probe.Count != int64(out.Samples) {
		t.Errorf("probe recorded = %d, want %d", s.Probe.Count, out.Samples)
	}
	if s.Reference.MeanMs != 100 {
		t.Errorf("reference mean = %g, want 100", s.Reference.MeanMs)
	}
}

func TestRunWritesProgress(t *testing.T) {
	var buf bytes.Buffer
	d := newDetector(t, detector.Options{Progress: &buf, InitialSamples: 4, MaxSamples: 6})
	src := sample.NewQueueSource(constant(5, 6), constant(5, 6))

	if _, err := d.Run(context.Background(), src); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := strings.Count(buf.String(), "\n")
	if lines != 3 { // n = 4, 5, 6
		t.Errorf("progress lines = %d, want 3:\n%s", lines, buf.String())
	}
	if !strings.Contains(buf.String(), "n=4 ") {
		t.Errorf("progress missing first iteration:\n%s", buf.String())
	}
}

func TestRunCanceledContext(t *testing.T) {
	d := newDetector(t, detector.Options{})
	src := sample.NewQueueSource(constant(5, 60), constant(5, 60))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Run(ctx, src); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunIntervalSurfaced(t *testing.T) {
	d := newDetector(t, detector.Options{})
	src := sample.NewQueueSource(constant(0, 60), constant(100, 60))

	out, err := d.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Verdict != detector.VerdictRejected {
		t.Fatalf("Verdict = %q, want rejected", out.Verdict)
	}
	// Probe minus reference: constant 100 vs 0 puts the interval at [100, 100].
	if out.Interval.Lower != 100 || out.Interval.Upper != 100 {
		t.Errorf("Interval = %+v, want [100, 100]", out.Interval)
	}
}

func TestNewValidation(t *testing.T) {
	engine, err := bootstrap.NewEngine(10, 0.01, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	if _, err := detector.New(detector.Options{}); err == nil {
		t.Errorf("New() without engine succeeded, want error")
	}
	if _, err := detector.New(detector.Options{Engine: engine, InitialSamples: 10, MaxSamples: 5}); err == nil {
		t.Errorf("New() with initial > max succeeded, want error")
	}
}
