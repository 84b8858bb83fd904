package bootstrap

import (
	"fmt"
	"math"
)

// PercentileInterval computes a two-sided confidence interval over a sorted
// bootstrap distribution at significance level alpha.
//
// Index rounding is deliberately conservative: floor for the lower bound,
// ceil for the upper bound, so the reported interval is never narrower than
// the exact percentile would give.
func PercentileInterval(sorted []float64, alpha float64) (Interval, error) {
	if len(sorted) == 0 {
		return Interval{}, fmt.Errorf("%w: empty distribution", ErrInvalidInput)
	}
	if alpha <= 0 || alpha >= 1 {
		return Interval{}, fmt.Errorf("%w: alpha must be in (0, 1), got %g", ErrInvalidInput, alpha)
	}

	m := float64(len(sorted) - 1)
	half := alpha / 2
	lo := int(math.Floor(m * half))
	hi := int(math.Ceil(m * (1 - half)))

	return Interval{Lower: sorted[lo], Upper: sorted[hi]}, nil
}
