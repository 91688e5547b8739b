package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedRetry waits exactly interval between attempts.
func fixedRetry(interval time.Duration, maxRetries int) *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:      maxRetries,
		InitialInterval: interval,
		MaxInterval:     interval,
		Multiplier:      1,
	}
}

// scriptedServer answers each request with the next status/body pair, repeating the last one.
type scriptedServer struct {
	t        *testing.T
	mu       sync.Mutex
	calls    int
	script   []scriptStep
	lastBody featureRequest
	lastAuth string
}

type scriptStep struct {
	status int
	body   string
}

func newScriptedServer(t *testing.T, steps ...scriptStep) (*scriptedServer, *httptest.Server) {
	s := &scriptedServer{t: t, script: steps}
	srv := httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *scriptedServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	require.Equal(s.t, http.MethodPost, r.Method)
	require.NoError(s.t, json.NewDecoder(r.Body).Decode(&s.lastBody))
	s.lastAuth = r.Header.Get("Authorization")

	step := s.script[min(s.calls, len(s.script)-1)]
	s.calls++

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(step.status)
	_, _ = w.Write([]byte(step.body))
}

func (s *scriptedServer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newHFEmbedder(t *testing.T, url string, retry *RetryPolicy) *Embedder {
	provider, err := NewHuggingFaceProvider(HuggingFaceConfig{APIKey: "hf_test", URL: url})
	require.NoError(t, err)
	return NewEmbedder(provider, Options{Retry: retry, Logger: quietLogger()})
}

func TestHuggingFace_FlatAndNestedResponses(t *testing.T) {
	for _, body := range []string{`[0.5, -1, 2]`, `[[0.5, -1, 2]]`} {
		server, srv := newScriptedServer(t, scriptStep{http.StatusOK, body})
		embedder := newHFEmbedder(t, srv.URL, nil)

		vector, err := embedder.Embed(context.Background(), "hello world")
		require.NoError(t, err, body)
		assert.Equal(t, []float32{0.5, -1, 2}, vector)
		assert.Equal(t, "hello world", server.lastBody.Inputs)
		assert.Equal(t, "Bearer hf_test", server.lastAuth)
	}
}

func TestHuggingFace_RetriesWhileModelLoads(t *testing.T) {
	const backoffInterval = 30 * time.Millisecond
	loading := scriptStep{http.StatusServiceUnavailable, `{"error":"Model is currently loading","estimated_time":20}`}
	server, srv := newScriptedServer(t, loading, loading, scriptStep{http.StatusOK, `[[1, 2, 3]]`})
	embedder := newHFEmbedder(t, srv.URL, fixedRetry(backoffInterval, 5))

	start := time.Now()
	vector, err := embedder.Embed(context.Background(), "warm up")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vector)
	assert.Equal(t, 3, server.callCount())
	assert.GreaterOrEqual(t, elapsed, 2*backoffInterval)
}

func TestHuggingFace_RetriesAreBounded(t *testing.T) {
	server, srv := newScriptedServer(t, scriptStep{http.StatusServiceUnavailable, `{"error":"loading"}`})
	embedder := newHFEmbedder(t, srv.URL, fixedRetry(time.Millisecond, 2))

	_, err := embedder.Embed(context.Background(), "never ready")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, ErrModelLoading)
	assert.Contains(t, err.Error(), "loading")
	assert.Equal(t, 3, server.callCount())
}

func TestHuggingFace_FatalErrorsAreNotRetried(t *testing.T) {
	cases := []struct {
		name   string
		step   scriptStep
		target error
	}{
		{"unauthorized", scriptStep{http.StatusUnauthorized, `{"error":"Invalid credentials"}`}, ErrUnauthorized},
		{"forbidden", scriptStep{http.StatusForbidden, `{"error":"nope"}`}, ErrUnauthorized},
		{"malformed", scriptStep{http.StatusOK, `{"unexpected":true}`}, ErrMalformedResponse},
		{"empty vector", scriptStep{http.StatusOK, `[]`}, ErrMalformedResponse},
		{"not json", scriptStep{http.StatusOK, `<html>gateway</html>`}, ErrMalformedResponse},
		{"server error", scriptStep{http.StatusInternalServerError, `boom`}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server, srv := newScriptedServer(t, tc.step)
			embedder := newHFEmbedder(t, srv.URL, fixedRetry(time.Millisecond, 5))

			_, err := embedder.Embed(context.Background(), "text")
			require.Error(t, err)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
			}
			assert.NotErrorIs(t, err, ErrRetriesExhausted)
			assert.Equal(t, 1, server.callCount())
		})
	}
}

func TestHuggingFace_NetworkErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	embedder := newHFEmbedder(t, url, fixedRetry(time.Millisecond, 5))
	_, err := embedder.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send request")
}

func TestNewHuggingFaceProvider_RequiresKey(t *testing.T) {
	_, err := NewHuggingFaceProvider(HuggingFaceConfig{})
	assert.Error(t, err)
}

// fakeProvider returns vectors derived from the text and can fail on demand.
type fakeProvider struct {
	calls   atomic.Int32
	delay   func(text string) time.Duration
	failOn  string
	vectors map[string][]float32
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.delay != nil {
		select {
		case <-time.After(f.delay(text)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if text == f.failOn {
		return nil, errors.New("provider exploded")
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{float32(len(text)), 1}, nil
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	texts := make([]string, 20)
	for i := range texts {
		texts[i] = strings.Repeat("x", i+1)
	}

	for _, concurrency := range []int{1, 4, 20} {
		t.Run(fmt.Sprintf("concurrency %d", concurrency), func(t *testing.T) {
			provider := &fakeProvider{
				// Later texts finish first.
				delay: func(text string) time.Duration { return time.Duration(25-len(text)) * time.Millisecond },
			}
			embedder := NewEmbedder(provider, Options{Concurrency: concurrency, Logger: quietLogger()})

			vectors, err := embedder.EmbedBatch(context.Background(), texts)
			require.NoError(t, err)
			require.Len(t, vectors, len(texts))
			for i, v := range vectors {
				assert.Equal(t, float32(i+1), v[0], "vector %d out of order", i)
			}
			assert.EqualValues(t, len(texts), provider.calls.Load())
		})
	}
}

func TestEmbedBatch_DoesNotDeduplicate(t *testing.T) {
	provider := &fakeProvider{}
	embedder := NewEmbedder(provider, Options{Logger: quietLogger()})

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"same", "same", "same"})
	require.NoError(t, err)
	assert.Len(t, vectors, 3)
	assert.EqualValues(t, 3, provider.calls.Load())
}

func TestEmbedBatch_FailureFailsWholeBatch(t *testing.T) {
	provider := &fakeProvider{failOn: "bad"}
	embedder := NewEmbedder(provider, Options{Logger: quietLogger()})

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"good", "bad", "also good"})
	require.Error(t, err)
	assert.Nil(t, vectors)
	assert.Contains(t, err.Error(), "text 1")
	// Sequential batches stop at the failing text.
	assert.EqualValues(t, 2, provider.calls.Load())
}

func TestEmbedBatch_Empty(t *testing.T) {
	embedder := NewEmbedder(&fakeProvider{}, Options{Logger: quietLogger()})
	vectors, err := embedder.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedBatch_DimensionMismatch(t *testing.T) {
	provider := &fakeProvider{vectors: map[string][]float32{
		"a": {1, 2},
		"b": {1, 2, 3},
	}}
	embedder := NewEmbedder(provider, Options{Logger: quietLogger()})

	_, err := embedder.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEmbed_ConfiguredDimension(t *testing.T) {
	provider := &fakeProvider{vectors: map[string][]float32{"q": {1, 2}}}
	embedder := NewEmbedder(provider, Options{Dimension: 384, Logger: quietLogger()})

	_, err := embedder.Embed(context.Background(), "q")
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = embedder.EmbedBatch(context.Background(), []string{"q"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEmbed_ContextCancelledDuringBackoff(t *testing.T) {
	_, srv := newScriptedServer(t, scriptStep{http.StatusServiceUnavailable, `{"error":"loading"}`})
	embedder := newHFEmbedder(t, srv.URL, fixedRetry(time.Second, 10))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := embedder.Embed(ctx, "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFeatureVector_Shapes(t *testing.T) {
	cases := []struct {
		body  string
		shape Shape
		want  []float32
		err   bool
	}{
		{body: `[1, 2.5]`, shape: ShapeFlat, want: []float32{1, 2.5}},
		{body: `[[1, 2.5]]`, shape: ShapeNested, want: []float32{1, 2.5}},
		{body: `[[1], [2]]`, err: true},
		{body: `[[]]`, err: true},
		{body: `[]`, err: true},
		{body: `{"error":"x"}`, err: true},
		{body: `["a", "b"]`, err: true},
	}

	for _, tc := range cases {
		var fv FeatureVector
		err := json.Unmarshal([]byte(tc.body), &fv)
		if tc.err {
			assert.ErrorIs(t, err, ErrMalformedResponse, tc.body)
			continue
		}
		require.NoError(t, err, tc.body)
		assert.Equal(t, tc.shape, fv.Shape, tc.body)
		assert.Equal(t, tc.want, fv.Vector, tc.body)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 2*time.Second, p.InitialInterval)
	assert.Positive(t, p.MaxRetries)
	assert.Positive(t, p.RandomizationFactor)
}
