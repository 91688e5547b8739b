package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// Provider turns one text into one vector with a single network call.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RetryPolicy bounds how long the Embedder waits for a loading model.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// InitialInterval is the wait before the first retry.
	InitialInterval time.Duration
	// MaxInterval caps a single wait.
	MaxInterval time.Duration
	// Multiplier grows the wait after each retry; 1 keeps it fixed.
	Multiplier float64
	// RandomizationFactor jitters each wait by ±factor; 0 disables jitter.
	RandomizationFactor float64
}

// DefaultRetryPolicy starts at the provider's recommended 2s wait and gives up
// after roughly two minutes of continuous "loading" answers.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:          8,
		InitialInterval:     2 * time.Second,
		MaxInterval:         20 * time.Second,
		Multiplier:          1.5,
		RandomizationFactor: 0.2,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.RandomizationFactor
	b.MaxElapsedTime = 0 // bounded by MaxRetries instead
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxRetries)), ctx)
}

// Options configures an Embedder.
type Options struct {
	// Retry is applied to every provider call (default: DefaultRetryPolicy).
	Retry *RetryPolicy
	// Concurrency is the number of parallel requests in EmbedBatch (default 1, sequential).
	Concurrency int
	// Dimension, when positive, is the required vector length.
	Dimension int
	// Logger receives retry and batch progress (default: slog.Default()).
	Logger *slog.Logger
}

// Embedder generates embeddings through a Provider.
// It retries transient "model loading" errors with bounded, jittered exponential backoff
// and fails immediately on everything else.
type Embedder struct {
	provider    Provider
	retry       RetryPolicy
	concurrency int
	dimension   int
	logger      *slog.Logger
}

// NewEmbedder creates a new Embedder around provider.
func NewEmbedder(provider Provider, opts Options) *Embedder {
	retry := DefaultRetryPolicy()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Embedder{
		provider:    provider,
		retry:       retry,
		concurrency: opts.Concurrency,
		dimension:   opts.Dimension,
		logger:      opts.Logger,
	}
}

// Dimension returns the configured vector length, or 0 when any length is accepted.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed generates the embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedWithRetry(ctx, text)
	if err != nil {
		return nil, err
	}
	if e.dimension > 0 && len(vector) != e.dimension {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vector), e.dimension)
	}
	return vector, nil
}

// EmbedBatch generates one embedding per text, in input order.
// Requests are issued one per text; with Concurrency > 1 they run in parallel and the
// results are placed by index. The first failure cancels the remaining requests.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	if len(texts) == 0 {
		return embeddings, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, text := range texts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vector, err := e.embedWithRetry(gctx, text)
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			embeddings[i] = vector
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := e.checkDimensions(embeddings); err != nil {
		return nil, err
	}

	e.logger.Debug("Embedded batch", "texts", len(texts), "dimension", len(embeddings[0]))
	return embeddings, nil
}

// checkDimensions requires one shared length across the batch (and the configured one, if any).
func (e *Embedder) checkDimensions(embeddings [][]float32) error {
	want := e.dimension
	if want <= 0 {
		want = len(embeddings[0])
	}
	for i, v := range embeddings {
		if len(v) != want {
			return fmt.Errorf("%w: text %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), want)
		}
	}
	return nil
}

// embedWithRetry calls the provider once per attempt.
// Only ErrModelLoading is retried; other errors are treated as permanent and fail immediately.
func (e *Embedder) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var (
		vector   []float32
		attempts int
		lastErr  error
	)

	operation := func() error {
		attempts++
		v, err := e.provider.Embed(ctx, text)
		if err != nil {
			lastErr = err
			if isTransient(err) {
				return err // Will retry with backoff
			}
			return backoff.Permanent(err)
		}
		vector = v
		return nil
	}

	notify := func(err error, wait time.Duration) {
		e.logger.Warn("Embedding provider not ready, retrying",
			"attempt", attempts,
			"wait", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotify(operation, e.retry.backOff(ctx), notify)
	if err == nil {
		return vector, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return nil, fmt.Errorf("embedding cancelled after %d attempts: %w", attempts, err)
	}
	if isTransient(err) {
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
	}
	return nil, err
}
