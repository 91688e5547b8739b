package embedding

import "errors"

var (
	// ErrModelLoading marks a transient provider state (model warming up, rate limited).
	// It is the only error the Embedder retries.
	ErrModelLoading = errors.New("embedding model is loading")

	// ErrUnauthorized is returned when the provider rejects the credentials.
	ErrUnauthorized = errors.New("embedding provider rejected credentials")

	// ErrMalformedResponse is returned when the provider answers with something that is not a vector.
	ErrMalformedResponse = errors.New("malformed embedding response")

	// ErrRetriesExhausted is returned when the provider stayed unavailable for the whole retry budget.
	ErrRetriesExhausted = errors.New("embedding retries exhausted")

	// ErrDimensionMismatch is returned when vectors do not have the expected length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
