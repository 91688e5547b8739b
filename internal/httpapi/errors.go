package httpapi

import (
	"context"
	"errors"
	"mime/multipart"
	"net"
	"net/http"

	"github.com/bull/docqa/internal/answer"
	"github.com/bull/docqa/internal/embedding"
	"github.com/bull/docqa/internal/extract"
	"github.com/bull/docqa/internal/ranking"
	"github.com/bull/docqa/internal/retrieval"
	"github.com/bull/docqa/internal/storage"
)

var errBadRequest = errors.New("bad request")

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var maxBytes *http.MaxBytesError
	var netErr net.Error

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &maxBytes), errors.Is(err, multipart.ErrMessageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, retrieval.ErrInvalidInput),
		errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, extract.ErrNoText):
		return http.StatusBadRequest
	case errors.Is(err, retrieval.ErrNoContext):
		return http.StatusNotFound
	case errors.Is(err, retrieval.ErrAnswerUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, embedding.ErrRetriesExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, embedding.ErrDimensionMismatch),
		errors.Is(err, ranking.ErrDimensionMismatch),
		errors.Is(err, storage.ErrDimensionMismatch):
		return http.StatusInternalServerError
	case errors.Is(err, embedding.ErrUnauthorized),
		errors.Is(err, embedding.ErrMalformedResponse),
		errors.Is(err, embedding.ErrModelLoading),
		errors.Is(err, answer.ErrEmptyAnswer),
		errors.As(err, &netErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
