package httpapi

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse is the body returned by /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker reports whether the document store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler checks the store within three seconds and answers 200 or 503.
func NewHealthHandler(store HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Store:     "connected",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		status := http.StatusOK
		if err := store.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Store = "disconnected"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, response)
	}
}
