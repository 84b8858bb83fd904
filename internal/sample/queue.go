// Package sample provides the measurement sources a detection run consumes:
// pre-recorded queues parsed from text or JSON input, and a live HTTP prober
// that measures round-trip times against a target.
package sample

import (
	"context"
	"fmt"

	"github.com/seclarsen/lagprobe/internal/detector"
)

// QueueSource serves pre-recorded measurements in arrival order. It backs
// file-based runs and tests; a live deployment uses HTTPSource instead.
type QueueSource struct {
	reference []float64
	probe     []float64
}

// NewQueueSource wraps two measurement queues. The slices are copied.
func NewQueueSource(reference, probe []float64) *QueueSource {
	return &QueueSource{
		reference: append([]float64(nil), reference...),
		probe:     append([]float64(nil), probe...),
	}
}

// NextReference pops the n oldest reference measurements.
func (q *QueueSource) NextReference(_ context.Context, n int) ([]float64, error) {
	return pop(&q.reference, n)
}

// NextProbe pops the n oldest probe measurements.
func (q *QueueSource) NextProbe(_ context.Context, n int) ([]float64, error) {
	return pop(&q.probe, n)
}

// Available reports the remaining queue lengths.
func (q *QueueSource) Available() (reference, probe int) {
	return len(q.reference), len(q.probe)
}

func pop(queue *[]float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("sample: pop count must be >= 1, got %d", n)
	}
	if len(*queue) < n {
		return nil, fmt.Errorf("%w: %d queued, %d requested", detector.ErrInsufficientData, len(*queue), n)
	}
	out := append([]float64(nil), (*queue)[:n]...)
	*queue = (*queue)[n:]
	return out, nil
}
