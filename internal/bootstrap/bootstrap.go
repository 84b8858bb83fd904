// Package bootstrap implements a difference-of-means bootstrap hypothesis
// test with percentile confidence intervals.
//
// The test takes two groups of timing measurements and tries to reject the
// null hypothesis that both groups share the same central tendency. Rejection
// is the signal that one measured operation is systematically slower (or
// faster) than the other.
package bootstrap

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

const (
	// DefaultRounds is the number of resampling rounds per test.
	DefaultRounds = 10000
	// DefaultAlpha is the two-sided significance level.
	DefaultAlpha = 0.01
)

// ErrInvalidInput reports an empty sample group or malformed parameter.
var ErrInvalidInput = errors.New("invalid input")

// Interval is a two-sided confidence interval. Both bounds are actual
// observed statistic values from the bootstrap distribution, never
// interpolated.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies within the interval, bounds included.
func (i Interval) Contains(v float64) bool {
	return i.Lower <= v && v <= i.Upper
}

// Decision is the outcome of a single hypothesis test invocation.
type Decision struct {
	Rejected bool     `json:"rejected"`
	Interval Interval `json:"interval"`
	Rounds   int      `json:"rounds"`
	Alpha    float64  `json:"alpha"`
}

// Engine runs bootstrap hypothesis tests. It owns the PRNG used for
// resampling; the generator is seeded once at construction and never
// reseeded, so successive rounds and successive Test calls stay
// statistically independent.
//
// Engine is not safe for concurrent use: the PRNG is shared mutable state.
type Engine struct {
	rounds int
	alpha  float64
	rng    *rand.Rand
}

// NewEngine creates an Engine with the given number of resampling rounds and
// significance level. rounds must be >= 1 and alpha must lie in (0, 1).
// The supplied generator must not be nil.
func NewEngine(rounds int, alpha float64, rng *rand.Rand) (*Engine, error) {
	if rounds < 1 {
		return nil, fmt.Errorf("%w: rounds must be >= 1, got %d", ErrInvalidInput, rounds)
	}
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("%w: alpha must be in (0, 1), got %g", ErrInvalidInput, alpha)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidInput)
	}
	return &Engine{rounds: rounds, alpha: alpha, rng: rng}, nil
}

// Test runs the full bootstrap procedure against two sample groups and
// decides whether the null hypothesis "x and y share the same central
// tendency" can be rejected at the engine's significance level.
//
// The groups need not be equally sized. Ordering of the two arguments only
// flips the sign of the underlying statistic, not the decision.
func (e *Engine) Test(x, y []float64) (Decision, error) {
	if len(x) == 0 || len(y) == 0 {
		return Decision{}, fmt.Errorf("%w: empty sample group", ErrInvalidInput)
	}

	dist := make([]float64, 0, e.rounds)
	for b := 0; b < e.rounds; b++ {
		xs, err := Resample(e.rng, x, len(x))
		if err != nil {
			return Decision{}, err
		}
		ys, err := Resample(e.rng, y, len(y))
		if err != nil {
			return Decision{}, err
		}
		diff, err := MeanDiff(xs, ys)
		if err != nil {
			return Decision{}, err
		}
		dist = append(dist, diff)
	}

	sort.Float64s(dist)

	interval, err := PercentileInterval(dist, e.alpha)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Rejected: interval.Lower > 0 || interval.Upper < 0,
		Interval: interval,
		Rounds:   e.rounds,
		Alpha:    e.alpha,
	}, nil
}
