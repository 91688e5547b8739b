// Package app wires configuration into stores, providers and the retrieval pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bull/docqa/internal/answer"
	"github.com/bull/docqa/internal/config"
	"github.com/bull/docqa/internal/embedding"
	"github.com/bull/docqa/internal/extract"
	"github.com/bull/docqa/internal/retrieval"
	"github.com/bull/docqa/internal/segment"
	"github.com/bull/docqa/internal/storage"
)

// Store is a document store the application can health-check and close.
type Store interface {
	retrieval.Store
	Health(ctx context.Context) error
	Close() error
}

// App holds the long-lived components shared by the HTTP server, MCP tools and CLI.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     Store
	Embedder  *embedding.Embedder
	Pipeline  *retrieval.Pipeline
	Extractor *extract.Extractor
}

// New connects the configured store and builds the pipeline.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	embedder, err := NewEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg, embedder.Dimension(), logger)
	if err != nil {
		return nil, err
	}

	segmenter, err := segment.NewSegmenter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		store.Close()
		return nil, err
	}

	answerer, err := NewAnswerer(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	opts := retrieval.Options{
		Segmenter: segmenter,
		TopK:      cfg.TopK,
		Logger:    logger,
	}
	// A nil *answer.Generator must not become a non-nil interface.
	if answerer != nil {
		opts.Answerer = answerer
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Embedder:  embedder,
		Pipeline:  retrieval.NewPipeline(store, embedder, opts),
		Extractor: extract.New(),
	}, nil
}

// Close releases the store connection.
func (a *App) Close() error {
	return a.Store.Close()
}

// NewEmbedder builds the configured provider wrapped in a retrying Embedder.
func NewEmbedder(cfg *config.Config, logger *slog.Logger) (*embedding.Embedder, error) {
	var (
		provider  embedding.Provider
		dimension = cfg.Embedding.Dimension
	)

	switch cfg.Embedding.Provider {
	case config.ProviderHuggingFace:
		url := cfg.Embedding.HuggingFaceURL
		if url == "" && cfg.Embedding.Model != "" {
			url = embedding.HuggingFaceModelURL(cfg.Embedding.Model)
		}
		hf, err := embedding.NewHuggingFaceProvider(embedding.HuggingFaceConfig{
			APIKey: cfg.Embedding.HuggingFaceAPIKey,
			URL:    url,
		})
		if err != nil {
			return nil, err
		}
		provider = hf
		if dimension == 0 && (url == "" || url == embedding.DefaultHuggingFaceURL) {
			dimension = embedding.MiniLMDimension
		}
	case config.ProviderOpenAI:
		oa, err := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey: cfg.Embedding.OpenAIAPIKey,
			Model:  cfg.Embedding.Model,
		})
		if err != nil {
			return nil, err
		}
		provider = oa
		if dimension == 0 && (cfg.Embedding.Model == "" || cfg.Embedding.Model == embedding.DefaultOpenAIModel) {
			dimension = embedding.OpenAIDimension
		}
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", config.ErrInvalidConfig, cfg.Embedding.Provider)
	}

	retry := embedding.DefaultRetryPolicy()
	retry.MaxRetries = cfg.Embedding.MaxRetries
	if cfg.Embedding.Backoff > 0 {
		retry.InitialInterval = cfg.Embedding.Backoff
		if retry.MaxInterval < retry.InitialInterval {
			retry.MaxInterval = retry.InitialInterval
		}
	}

	logger.Debug("Embedding provider configured",
		"provider", cfg.Embedding.Provider, "dimension", dimension, "max_retries", retry.MaxRetries)

	return embedding.NewEmbedder(provider, embedding.Options{
		Retry:       &retry,
		Concurrency: cfg.Embedding.Concurrency,
		Dimension:   dimension,
		Logger:      logger,
	}), nil
}

// ErrDimensionRequired is returned for vector stores that must know the dimension up front.
var ErrDimensionRequired = errors.New("embedding dimension must be configured for this store")

// OpenStore connects the configured backend.
func OpenStore(ctx context.Context, cfg *config.Config, dimension int, logger *slog.Logger) (Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		logger.Warn("Using in-memory store; documents are lost on restart")
		return storage.NewMemoryStore(), nil

	case config.BackendSQLite:
		store, err := storage.NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("Opened SQLite store", "path", store.Path())
		return store, nil

	case config.BackendMongo:
		store, err := storage.NewMongoStore(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		logger.Info("Connected to MongoDB", "database", cfg.Store.MongoDatabase)
		return store, nil

	case config.BackendQdrant:
		if dimension <= 0 {
			return nil, ErrDimensionRequired
		}
		store, err := storage.NewQdrantStorage(storage.QdrantConfig{
			Host:       cfg.Store.QdrantHost,
			Port:       cfg.Store.QdrantPort,
			Collection: cfg.Store.QdrantCollection,
			Dimension:  dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("open qdrant store: %w", err)
		}
		if err := store.EnsureCollection(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ensure qdrant collection: %w", err)
		}
		logger.Info("Connected to Qdrant",
			"host", cfg.Store.QdrantHost, "port", cfg.Store.QdrantPort, "collection", cfg.Store.QdrantCollection)
		return store, nil

	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, cfg.Store.Backend)
	}
}

// NewAnswerer returns the answer generator, or nil when no API key is configured.
func NewAnswerer(cfg *config.Config, logger *slog.Logger) (*answer.Generator, error) {
	if cfg.Answer.APIKey == "" {
		logger.Info("No answer API key configured; ask is disabled")
		return nil, nil
	}
	return answer.NewGenerator(answer.Config{
		APIKey:  cfg.Answer.APIKey,
		BaseURL: cfg.Answer.BaseURL,
		Model:   cfg.Answer.Model,
		Logger:  logger,
	})
}
