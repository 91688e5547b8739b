package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docqa/internal/app"
	"github.com/bull/docqa/internal/embedding"
	"github.com/bull/docqa/internal/extract"
	"github.com/bull/docqa/internal/ranking"
	"github.com/bull/docqa/internal/retrieval"
)

type fakeService struct {
	uploads   []app.Upload
	ingestRes *retrieval.IngestResult
	ingestErr error

	question string
	k        int
	results  []retrieval.Result
	queryErr error

	answer *retrieval.Answer
	askErr error

	docs      []retrieval.DocumentSummary
	healthErr error
}

func (f *fakeService) IngestUploads(ctx context.Context, uploads []app.Upload) (*retrieval.IngestResult, error) {
	f.uploads = uploads
	return f.ingestRes, f.ingestErr
}

func (f *fakeService) Query(ctx context.Context, question string, k int) ([]retrieval.Result, error) {
	f.question, f.k = question, k
	return f.results, f.queryErr
}

func (f *fakeService) Ask(ctx context.Context, question string) (*retrieval.Answer, error) {
	f.question = question
	return f.answer, f.askErr
}

func (f *fakeService) ListDocuments(ctx context.Context) ([]retrieval.DocumentSummary, error) {
	return f.docs, nil
}

func (f *fakeService) Health(ctx context.Context) error { return f.healthErr }

func newTestServer(t *testing.T, svc Service, opts Options) *httptest.Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	mux := http.NewServeMux()
	NewHandler(svc, opts).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile(UploadField, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestUpload(t *testing.T) {
	svc := &fakeService{ingestRes: &retrieval.IngestResult{Stored: []string{"notes.txt"}}}
	srv := newTestServer(t, svc, Options{})

	body, contentType := multipartBody(t, map[string]string{"notes.txt": "alpha beta gamma"})
	resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode(t, resp)
	assert.Equal(t, true, got["success"])
	assert.Equal(t, []any{"notes.txt"}, got["filenames"])

	require.Len(t, svc.uploads, 1)
	assert.Equal(t, "notes.txt", svc.uploads[0].Filename)
	assert.Equal(t, "alpha beta gamma", string(svc.uploads[0].Data))
}

func TestUpload_NoFiles(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{})

	body, contentType := multipartBody(t, nil)
	resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, decode(t, resp)["success"])
}

func TestUpload_PartialFailureReportsStored(t *testing.T) {
	svc := &fakeService{
		ingestRes: &retrieval.IngestResult{Stored: []string{"a.txt"}},
		ingestErr: fmt.Errorf("ingest b.txt: %w", embedding.ErrRetriesExhausted),
	}
	srv := newTestServer(t, svc, Options{})

	body, contentType := multipartBody(t, map[string]string{"a.txt": "one", "b.txt": "two"})
	resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	got := decode(t, resp)
	assert.Equal(t, false, got["success"])
	assert.Equal(t, []any{"a.txt"}, got["filenames"])
	assert.Contains(t, got["error"], "b.txt")
}

func TestUpload_TooLarge(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{MaxUploadBytes: 1024})

	body, contentType := multipartBody(t, map[string]string{"big.txt": strings.Repeat("word ", 1000)})
	resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestQuery(t *testing.T) {
	svc := &fakeService{results: []retrieval.Result{
		{Text: "alpha", Filename: "a.txt", Similarity: 0.9},
		{Text: "beta", Filename: "b.txt", Similarity: 0.5},
	}}
	srv := newTestServer(t, svc, Options{})

	resp := postJSON(t, srv.URL+"/api/query", `{"query":"what is alpha","top_k":2}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode(t, resp)
	assert.Equal(t, true, got["success"])
	results := got["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	assert.Equal(t, "alpha", first["text"])
	assert.Equal(t, "a.txt", first["filename"])
	assert.InDelta(t, 0.9, first["similarity"], 1e-9)

	assert.Equal(t, "what is alpha", svc.question)
	assert.Equal(t, 2, svc.k)
}

func TestQuery_DefaultTopK(t *testing.T) {
	svc := &fakeService{results: []retrieval.Result{}}
	srv := newTestServer(t, svc, Options{})

	resp := postJSON(t, srv.URL+"/api/query", `{"query":"anything"}`)
	got := decode(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, got["results"])
	assert.Equal(t, 0, svc.k)
}

func TestQuery_InvalidJSON(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{})

	resp := postJSON(t, srv.URL+"/api/query", `{"query":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, decode(t, resp)["success"])
}

func TestQuery_Timeout(t *testing.T) {
	svc := &fakeService{queryErr: context.DeadlineExceeded}
	srv := newTestServer(t, svc, Options{RequestTimeout: time.Second})

	resp := postJSON(t, srv.URL+"/api/query", `{"query":"slow"}`)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	resp.Body.Close()
}

func TestAsk(t *testing.T) {
	svc := &fakeService{answer: &retrieval.Answer{
		Text:      "Alpha is the first letter.",
		Sources:   []string{"a.txt"},
		Fragments: []retrieval.Result{{Text: "alpha", Filename: "a.txt", Similarity: 0.9}},
	}}
	srv := newTestServer(t, svc, Options{})

	resp := postJSON(t, srv.URL+"/api/ask", `{"question":"what is alpha?"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode(t, resp)
	assert.Equal(t, true, got["success"])
	assert.Equal(t, "Alpha is the first letter.", got["answer"])
	assert.Equal(t, []any{"a.txt"}, got["sources"])
	assert.Equal(t, "what is alpha?", svc.question)
}

func TestAsk_Errors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{retrieval.ErrNoContext, http.StatusNotFound},
		{retrieval.ErrAnswerUnavailable, http.StatusNotImplemented},
		{fmt.Errorf("%w: question is empty", retrieval.ErrInvalidInput), http.StatusBadRequest},
	}

	for _, tc := range cases {
		srv := newTestServer(t, &fakeService{askErr: tc.err}, Options{})
		resp := postJSON(t, srv.URL+"/api/ask", `{"question":"x"}`)
		assert.Equal(t, tc.status, resp.StatusCode, tc.err.Error())
		got := decode(t, resp)
		assert.Equal(t, false, got["success"])
		assert.NotEmpty(t, got["error"])
	}
}

func TestDocuments(t *testing.T) {
	svc := &fakeService{docs: []retrieval.DocumentSummary{{ID: "1", Filename: "a.txt", Chunks: 2}}}
	srv := newTestServer(t, svc, Options{})

	resp, err := http.Get(srv.URL + "/api/documents")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	docs := decode(t, resp)["documents"].([]any)
	require.Len(t, docs, 1)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{})
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode(t, resp)
	assert.Equal(t, "healthy", got["status"])
	assert.Equal(t, "connected", got["store"])

	srv = newTestServer(t, &fakeService{healthErr: errors.New("down")}, Options{})
	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unhealthy", decode(t, resp)["status"])
}

func TestLanding(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `name="documents"`)

	resp, err = http.Get(srv.URL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{extract.ErrUnsupportedType, http.StatusBadRequest},
		{extract.ErrNoText, http.StatusBadRequest},
		{embedding.ErrUnauthorized, http.StatusBadGateway},
		{embedding.ErrMalformedResponse, http.StatusBadGateway},
		{fmt.Errorf("rank chunks: %w", ranking.ErrDimensionMismatch), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), "%v", tc.err)
	}
}
