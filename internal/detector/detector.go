// Package detector implements the sequential decision loop that grows two
// timing sample groups one observation at a time and asks the bootstrap
// engine for a verdict at every step.
//
// The loop stops as soon as the null hypothesis is rejected, so a strong
// timing signal is caught at the minimum sample size, while a weak or absent
// signal still terminates deterministically at the maximum size.
package detector

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/seclarsen/lagprobe/internal/bootstrap"
	"github.com/seclarsen/lagprobe/internal/metrics"
)

const (
	// DefaultInitialSamples is the minimum batch pulled from each side
	// before the first test.
	DefaultInitialSamples = 4
	// DefaultMaxSamples caps the number of observations consumed per side.
	DefaultMaxSamples = 60
)

// ErrInsufficientData reports a source that cannot supply the observations a
// full run may need.
var ErrInsufficientData = errors.New("insufficient data")

// Source supplies ordered timing measurements for both sides. Measurements
// are wall-clock latencies in milliseconds; values are consumed oldest first
// and never replayed.
type Source interface {
	// NextReference pops the n oldest reference measurements.
	NextReference(ctx context.Context, n int) ([]float64, error)
	// NextProbe pops the n oldest probe measurements.
	NextProbe(ctx context.Context, n int) ([]float64, error)
	// Available reports how many measurements each side can still supply.
	Available() (reference, probe int)
}

// Verdict is the terminal outcome of a run.
type Verdict string

const (
	// VerdictRejected means the null hypothesis was rejected: the two
	// timing populations very likely differ, the vulnerability signal.
	VerdictRejected Verdict = "rejected"
	// VerdictNotRejected means no significant difference was found within
	// the sample budget.
	VerdictNotRejected Verdict = "not_rejected"
)

// Outcome carries the verdict and the evidence behind it.
type Outcome struct {
	RunID    string             `json:"run_id"`
	Verdict  Verdict            `json:"verdict"`
	Samples  int                `json:"samples_per_side"`
	Interval bootstrap.Interval `json:"interval"`
	Rounds   int                `json:"rounds"`
	Alpha    float64            `json:"alpha"`
}

// Options configures a Detector. Engine is required; everything else has a
// usable zero value.
type Options struct {
	Engine         *bootstrap.Engine
	InitialSamples int
	MaxSamples     int

	// Collector, when set, receives every consumed measurement.
	Collector *metrics.Collector
	// Progress, when set, gets one diagnostic line per iteration.
	Progress io.Writer
	// Tracer, when set, emits one span per iteration.
	Tracer trace.Tracer
}

func (o *Options) normalize() error {
	if o.Engine == nil {
		return fmt.Errorf("detector: engine is required")
	}
	if o.InitialSamples <= 0 {
		o.InitialSamples = DefaultInitialSamples
	}
	if o.MaxSamples <= 0 {
		o.MaxSamples = DefaultMaxSamples
	}
	if o.InitialSamples > o.MaxSamples {
		return fmt.Errorf("detector: initial samples %d exceeds max samples %d", o.InitialSamples, o.MaxSamples)
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("")
	}
	return nil
}

// Detector runs the sequential test against a Source.
type Detector struct {
	opt Options
}

func New(opt Options) (*Detector, error) {
	if err := opt.normalize(); err != nil {
		return nil, err
	}
	return &Detector{opt: opt}, nil
}

// Run executes one full detection: precondition check, initial batch, then
// one bootstrap test per added observation pair until a terminal verdict.
//
// The run is fully synchronous. Any source or engine failure aborts the run
// with no partial verdict; nothing is retried.
func (d *Detector) Run(ctx context.Context, src Source) (Outcome, error) {
	out := Outcome{RunID: ulid.Make().String()}

	// Both sides must be able to cover a full-length run before anything is
	// consumed. A source that dries up mid-loop is an invariant violation.
	refAvail, probeAvail := src.Available()
	if refAvail < d.opt.MaxSamples || probeAvail < d.opt.MaxSamples {
		return out, fmt.Errorf("%w: need %d observations per side, have reference=%d probe=%d",
			ErrInsufficientData, d.opt.MaxSamples, refAvail, probeAvail)
	}

	reference, err := d.pull(ctx, src, metrics.SideReference, d.opt.InitialSamples)
	if err != nil {
		return out, err
	}
	probe, err := d.pull(ctx, src, metrics.SideProbe, d.opt.InitialSamples)
	if err != nil {
		return out, err
	}

	for n := d.opt.InitialSamples; ; n++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		decision, err := d.testOnce(ctx, n, reference, probe)
		if err != nil {
			return out, err
		}

		out.Samples = n
		out.Interval = decision.Interval
		out.Rounds = decision.Rounds
		out.Alpha = decision.Alpha

		if d.opt.Progress != nil {
			fmt.Fprintf(d.opt.Progress, "n=%d interval=[%.4f, %.4f] rejected=%t\n",
				n, decision.Interval.Lower, decision.Interval.Upper, decision.Rejected)
		}

		if decision.Rejected {
			out.Verdict = VerdictRejected
			return out, nil
		}
		if n == d.opt.MaxSamples {
			out.Verdict = VerdictNotRejected
			return out, nil
		}

		more, err := d.pull(ctx, src, metrics.SideReference, 1)
		if err != nil {
			return out, err
		}
		reference = append(reference, more...)

		more, err = d.pull(ctx, src, metrics.SideProbe, 1)
		if err != nil {
			return out, err
		}
		probe = append(probe, more...)
	}
}

func (d *Detector) testOnce(ctx context.Context, n int, reference, probe []float64) (bootstrap.Decision, error) {
	_, span := d.opt.Tracer.Start(ctx, "bootstrap test",
		trace.WithAttributes(attribute.Int("lagprobe.samples_per_side", n)))
	defer span.End()

	decision, err := d.opt.Engine.Test(probe, reference)
	if err != nil {
		span.RecordError(err)
		return bootstrap.Decision{}, err
	}
	span.SetAttributes(attribute.Bool("lagprobe.rejected", decision.Rejected))
	return decision, nil
}

func (d *Detector) pull(ctx context.Context, src Source, side metrics.Side, n int) ([]float64, error) {
	var (
		values []float64
		err    error
	)
	switch side {
	case metrics.SideReference:
		values, err = src.NextReference(ctx, n)
	default:
		values, err = src.NextProbe(ctx, n)
	}
	if err != nil {
		return nil, fmt.Errorf("%s source: %w", side, err)
	}
	if len(values) != n {
		return nil, fmt.Errorf("%w: %s source returned %d observations, want %d",
			ErrInsufficientData, side, len(values), n)
	}
	if d.opt.Collector != nil {
		d.opt.Collector.RecordAll(side, values)
	}
	return values, nil
}
