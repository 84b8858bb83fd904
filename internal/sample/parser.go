package sample

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ParseText reads the plain-text input format: a header line holding the
// per-side observation count, followed by that many whitespace-separated
// reference values and the same number of probe values. Lines starting with
// '#' before the header are skipped.
//
//	# optional comments
//	3
//	10.2 11.0 10.7
//	48.9 51.3 50.0
func ParseText(r io.Reader) (reference, probe []float64, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	count := -1
	var values []float64

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if count < 0 {
			count, err = strconv.Atoi(line)
			if err != nil {
				return nil, nil, fmt.Errorf("sample: bad count header %q: %w", line, err)
			}
			if count < 1 {
				return nil, nil, fmt.Errorf("sample: count must be >= 1, got %d", count)
			}
			continue
		}
		for _, field := range strings.Fields(line) {
			v, err := parseMeasurement(field)
			if err != nil {
				return nil, nil, err
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("sample: read input: %w", err)
	}

	if count < 0 {
		return nil, nil, fmt.Errorf("sample: missing count header")
	}
	if len(values) != 2*count {
		return nil, nil, fmt.Errorf("sample: expected %d values (2×%d), got %d", 2*count, count, len(values))
	}

	return values[:count], values[count:], nil
}

func parseMeasurement(field string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("sample: bad measurement %q: %w", field, err)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("sample: measurement %q must be a non-negative finite number", field)
	}
	return v, nil
}
