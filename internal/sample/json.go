package sample

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// ParseJSON reads the JSON input format:
//
//	{"reference": [10.2, 11.0], "probe": [48.9, 51.3]}
//
// Both arrays must be present and non-empty; they need not be equal length.
func ParseJSON(data []byte) (reference, probe []float64, err error) {
	if !gjson.ValidBytes(data) {
		return nil, nil, fmt.Errorf("sample: invalid JSON input")
	}

	reference, err = jsonSide(data, "reference")
	if err != nil {
		return nil, nil, err
	}
	probe, err = jsonSide(data, "probe")
	if err != nil {
		return nil, nil, err
	}
	return reference, probe, nil
}

func jsonSide(data []byte, key string) ([]float64, error) {
	result := gjson.GetBytes(data, key)
	if !result.Exists() {
		return nil, fmt.Errorf("sample: missing %q array", key)
	}
	if !result.IsArray() {
		return nil, fmt.Errorf("sample: %q must be an array of numbers", key)
	}

	items := result.Array()
	if len(items) == 0 {
		return nil, fmt.Errorf("sample: %q array is empty", key)
	}

	values := make([]float64, 0, len(items))
	for i, item := range items {
		if item.Type != gjson.Number {
			return nil, fmt.Errorf("sample: %s[%d] is not a number: %s", key, i, item.Raw)
		}
		v, err := parseMeasurement(item.Raw)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		values = append(values, v)
	}
	return values, nil
}
