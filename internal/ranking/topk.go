package ranking

import (
	"fmt"
	"sort"
)

// Candidate pairs a stored vector with the payload returned when it ranks.
type Candidate[T any] struct {
	Vector  []float32
	Payload T
}

// Scored is a ranked payload with its similarity to the query.
type Scored[T any] struct {
	Payload T
	Score   float64
}

// TopK scores every candidate against query by cosine similarity and returns the
// min(k, len(candidates)) best, highest score first. Equal scores keep the order in
// which the candidates were given, so repeated calls on the same input agree.
//
// Every candidate must have the same length as query; the first mismatch aborts the
// whole ranking with ErrDimensionMismatch. k <= 0 returns an empty result.
func TopK[T any](query []float32, candidates []Candidate[T], k int) ([]Scored[T], error) {
	if k <= 0 || len(candidates) == 0 {
		return []Scored[T]{}, nil
	}

	scored := make([]Scored[T], len(candidates))
	for i, c := range candidates {
		score, err := Cosine(query, c.Vector)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		scored[i] = Scored[T]{Payload: c.Payload, Score: score}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}
