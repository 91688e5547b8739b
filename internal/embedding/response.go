package embedding

import (
	"encoding/json"
	"fmt"
)

// Shape identifies which of the two accepted layouts a provider response used.
type Shape int

const (
	// ShapeFlat is a bare vector: [0.1, 0.2, ...].
	ShapeFlat Shape = iota + 1
	// ShapeNested is a vector wrapped in a one-element list: [[0.1, 0.2, ...]].
	ShapeNested
)

func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeNested:
		return "nested"
	default:
		return "unknown"
	}
}

// FeatureVector is a decoded feature-extraction response normalized to one flat vector.
type FeatureVector struct {
	Shape  Shape
	Vector []float32
}

// UnmarshalJSON accepts a flat vector or a single vector nested in a list.
// Any other layout, or an empty vector, is ErrMalformedResponse.
func (f *FeatureVector) UnmarshalJSON(data []byte) error {
	var flat []float64
	if err := json.Unmarshal(data, &flat); err == nil {
		if len(flat) == 0 {
			return fmt.Errorf("%w: empty vector", ErrMalformedResponse)
		}
		*f = FeatureVector{Shape: ShapeFlat, Vector: toFloat32(flat)}
		return nil
	}

	var nested [][]float64
	if err := json.Unmarshal(data, &nested); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(nested) != 1 {
		return fmt.Errorf("%w: expected one nested vector, got %d", ErrMalformedResponse, len(nested))
	}
	if len(nested[0]) == 0 {
		return fmt.Errorf("%w: empty vector", ErrMalformedResponse)
	}

	*f = FeatureVector{Shape: ShapeNested, Vector: toFloat32(nested[0])}
	return nil
}

// toFloat32 converts []float64 to []float32.
// Providers return float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
