// Package metrics aggregates the timing measurements consumed during a
// detection run so the final report can show both latency populations next
// to the verdict.
package metrics

import (
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Side labels one of the two measured populations.
type Side string

const (
	SideReference Side = "reference"
	SideProbe     Side = "probe"
)

// Collector records measurements per side in a thread-safe manner.
// Measurements are wall-clock latencies in milliseconds.
type Collector struct {
	mu        sync.Mutex
	reference *recorder
	probe     *recorder
}

type recorder struct {
	hist  *hdrhistogram.Histogram
	count int64
	sum   float64
	min   float64
	max   float64
}

// Summary holds aggregated statistics for both sides.
type Summary struct {
	Reference SideSummary `json:"reference"`
	Probe     SideSummary `json:"probe"`
}

// SideSummary is the aggregate for a single side. All latency fields are
// milliseconds.
type SideSummary struct {
	Count  int64   `json:"count"`
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P90Ms  float64 `json:"p90_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

func NewCollector() *Collector {
	return &Collector{
		reference: newRecorder(),
		probe:     newRecorder(),
	}
}

func newRecorder() *recorder {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &recorder{hist: hdrhistogram.New(1, 60_000_000, 3)}
}

// Record adds one measurement, in milliseconds, to the given side.
// Unknown sides are ignored.
func (c *Collector) Record(side Side, ms float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.recorderFor(side)
	if r == nil {
		return
	}
	r.record(ms)
}

// RecordAll adds a batch of measurements to the given side.
func (c *Collector) RecordAll(side Side, values []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.recorderFor(side)
	if r == nil {
		return
	}
	for _, v := range values {
		r.record(v)
	}
}

func (c *Collector) recorderFor(side Side) *recorder {
	switch side {
	case SideReference:
		return c.reference
	case SideProbe:
		return c.probe
	default:
		return nil
	}
}

func (r *recorder) record(ms float64) {
	us := int64(ms * 1000)
	if us < r.hist.LowestTrackableValue() {
		us = r.hist.LowestTrackableValue()
	}
	if us > r.hist.HighestTrackableValue() {
		us = r.hist.HighestTrackableValue()
	}
	_ = r.hist.RecordValue(us)

	if r.count == 0 || ms < r.min {
		r.min = ms
	}
	if ms > r.max {
		r.max = ms
	}
	r.sum += ms
	r.count++
}

// Summary computes aggregated statistics for both sides.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Summary{
		Reference: c.reference.summary(),
		Probe:     c.probe.summary(),
	}
}

func (r *recorder) summary() SideSummary {
	s := SideSummary{
		Count: r.count,
		MinMs: r.min,
		MaxMs: r.max,
	}
	if r.count > 0 {
		s.MeanMs = r.sum / float64(r.count)
	}
	if r.hist.TotalCount() > 0 {
		s.P50Ms = float64(r.hist.ValueAtQuantile(50)) / 1000
		s.P90Ms = float64(r.hist.ValueAtQuantile(90)) / 1000
		s.P99Ms = float64(r.hist.ValueAtQuantile(99)) / 1000
	}
	return s
}
