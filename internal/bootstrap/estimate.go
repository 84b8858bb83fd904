package bootstrap

import "fmt"

// MeanDiff returns mean(x) - mean(y). A plain sum-then-divide is accurate
// enough at the sample sizes this package operates on.
func MeanDiff(x, y []float64) (float64, error) {
	mx, err := mean(x)
	if err != nil {
		return 0, err
	}
	my, err := mean(y)
	if err != nil {
		return 0, err
	}
	return mx - my, nil
}

func mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: cannot average an empty group", ErrInvalidInput)
	}
	acc := 0.0
	for _, v := range values {
		acc += v
	}
	return acc / float64(len(values)), nil
}
