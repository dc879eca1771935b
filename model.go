package hfocore

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Model is a pretrained logistic-regression classifier: per-feature
// standardization statistics, linear coefficients, and a probability
// threshold. Loaded once, immutable, and passed explicitly into Classify.
type Model struct {
	Coefficients []float64
	Intercept    float64
	Threshold    float64
	Features     []string
	Mean         []float64
	Std          []float64
}

// modelJSON mirrors the on-disk layout, where the scalar fields may be
// stored either bare or as single-element arrays.
type modelJSON struct {
	Coefficients *[]float64       `json:"coefficients"`
	Intercept    *json.RawMessage `json:"intercept"`
	Threshold    *json.RawMessage `json:"threshold"`
	Features     *[]string        `json:"features"`
	Mean         *[]float64       `json:"mean"`
	Std          *[]float64       `json:"std"`
}

// ParseModel decodes and validates a model from JSON, reporting the first
// missing or malformed field by name.
func ParseModel(data []byte) (*Model, error) {
	var raw modelJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, validationf("model", "malformed JSON: %v", err)
	}

	required := []struct {
		name string
		ok   bool
	}{
		{"coefficients", raw.Coefficients != nil},
		{"intercept", raw.Intercept != nil},
		{"threshold", raw.Threshold != nil},
		{"features", raw.Features != nil},
		{"mean", raw.Mean != nil},
		{"std", raw.Std != nil},
	}
	for _, f := range required {
		if !f.ok {
			return nil, validationf(f.name, "model missing field")
		}
	}

	intercept, err := scalarField("intercept", *raw.Intercept)
	if err != nil {
		return nil, err
	}
	threshold, err := scalarField("threshold", *raw.Threshold)
	if err != nil {
		return nil, err
	}
	if threshold < 0 || threshold > 1 {
		return nil, validationf("threshold", "must be within [0, 1], got %g", threshold)
	}

	m := &Model{
		Coefficients: *raw.Coefficients,
		Intercept:    intercept,
		Threshold:    threshold,
		Features:     *raw.Features,
		Mean:         *raw.Mean,
		Std:          *raw.Std,
	}
	n := len(m.Coefficients)
	if n == 0 {
		return nil, validationf("coefficients", "must not be empty")
	}
	for _, f := range []struct {
		name string
		l    int
	}{
		{"features", len(m.Features)},
		{"mean", len(m.Mean)},
		{"std", len(m.Std)},
	} {
		if f.l != n {
			return nil, validationf(f.name, "length %d does not match coefficients length %d", f.l, n)
		}
	}
	return m, nil
}

// LoadModel reads and validates a model JSON file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, validationf("model", "cannot read %s: %v", path, err)
	}
	m, err := ParseModel(data)
	if err != nil {
		return nil, fmt.Errorf("model file %s: %w", path, err)
	}
	return m, nil
}

// scalarField accepts a bare number or a single-element numeric array.
func scalarField(name string, raw json.RawMessage) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, nil
	}
	var arr []float64
	if err := json.Unmarshal(raw, &arr); err != nil || len(arr) != 1 {
		return math.NaN(), validationf(name, "must be a scalar or single-element array")
	}
	return arr[0], nil
}
