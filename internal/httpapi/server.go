// Package httpapi exposes upload, query and ask endpoints over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/bull/docqa/internal/app"
	"github.com/bull/docqa/internal/retrieval"
)

// UploadField is the multipart field carrying uploaded documents.
const UploadField = "documents"

// Service is the application surface the handlers call.
type Service interface {
	IngestUploads(ctx context.Context, uploads []app.Upload) (*retrieval.IngestResult, error)
	Query(ctx context.Context, question string, k int) ([]retrieval.Result, error)
	Ask(ctx context.Context, question string) (*retrieval.Answer, error)
	ListDocuments(ctx context.Context) ([]retrieval.DocumentSummary, error)
	Health(ctx context.Context) error
}

// Options configures the handlers.
type Options struct {
	// MaxUploadBytes caps the size of an upload request body.
	MaxUploadBytes int64
	// RequestTimeout bounds each API call, including provider retries.
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Handler serves the JSON API.
type Handler struct {
	svc    Service
	opts   Options
	logger *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(svc Service, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{svc: svc, opts: opts, logger: opts.Logger}
}

// Register mounts the API, health and landing routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/upload", h.handleUpload)
	mux.HandleFunc("POST /api/query", h.handleQuery)
	mux.HandleFunc("POST /api/ask", h.handleAsk)
	mux.HandleFunc("GET /api/documents", h.handleDocuments)
	mux.HandleFunc("GET /health", NewHealthHandler(h.svc))
	mux.HandleFunc("GET /{$}", NewLandingHandler())
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.opts.RequestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.opts.RequestTimeout)
}

type uploadResponse struct {
	Success   bool     `json:"success"`
	Filenames []string `json:"filenames"`
	Error     string   `json:"error,omitempty"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	headers := r.MultipartForm.File[UploadField]
	if len(headers) == 0 {
		h.writeError(w, r, fmt.Errorf("%w: no files uploaded in field %q", errBadRequest, UploadField))
		return
	}

	uploads := make([]app.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: %s: %v", errBadRequest, fh.Filename, err))
			return
		}
		uploads = append(uploads, app.Upload{Filename: fh.Filename, Data: data})
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	result, err := h.svc.IngestUploads(ctx, uploads)
	if err != nil {
		stored := []string{}
		if result != nil {
			stored = result.Stored
		}
		status := h.statusFor(r, err)
		writeJSON(w, status, uploadResponse{Success: false, Filenames: stored, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{Success: true, Filenames: result.Stored})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type queryResponse struct {
	Success bool               `json:"success"`
	Results []retrieval.Result `json:"results"`
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	results, err := h.svc.Query(ctx, req.Query, req.TopK)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Success: true, Results: results})
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Success   bool               `json:"success"`
	Answer    string             `json:"answer"`
	Sources   []string           `json:"sources"`
	Fragments []retrieval.Result `json:"fragments"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	ans, err := h.svc.Ask(ctx, req.Question)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{
		Success:   true,
		Answer:    ans.Text,
		Sources:   ans.Sources,
		Fragments: ans.Fragments,
	})
}

type documentsResponse struct {
	Success   bool                        `json:"success"`
	Documents []retrieval.DocumentSummary `json:"documents"`
}

func (h *Handler) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentsResponse{Success: true, Documents: docs})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, h.statusFor(r, err), errorResponse{Success: false, Error: err.Error()})
}

// statusFor maps an error to its HTTP status and logs server-side failures.
func (h *Handler) statusFor(r *http.Request, err error) int {
	status := StatusFor(err)
	switch {
	case status >= 500:
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	case errors.Is(err, errBadRequest):
		h.logger.Debug("Bad request", "path", r.URL.Path, "error", err)
	}
	return status
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
