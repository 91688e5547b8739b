package retrieval

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNoContext         = errors.New("no stored documents to answer from")
	ErrAnswerUnavailable = errors.New("answer generation is not configured")
)
