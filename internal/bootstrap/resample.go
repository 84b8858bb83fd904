package bootstrap

import (
	"fmt"
	"math/rand"
)

// Resample draws size elements uniformly at random with replacement from
// values. The input is never mutated; the result is a fresh slice.
func Resample(rng *rand.Rand, values []float64, size int) ([]float64, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: cannot resample an empty group", ErrInvalidInput)
	}
	if size < 1 {
		return nil, fmt.Errorf("%w: resample size must be >= 1, got %d", ErrInvalidInput, size)
	}

	out := make([]float64, size)
	for i := range out {
		out[i] = values[rng.Intn(len(values))]
	}
	return out, nil
}
