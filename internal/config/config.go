// Package config loads docqa settings from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendQdrant = "qdrant"
)

// Embedding providers.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           string        `yaml:"port"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Backend          string `yaml:"backend"`
	SQLitePath       string `yaml:"sqlite_path"`
	MongoURI         string `yaml:"mongo_uri"`
	MongoDatabase    string `yaml:"mongo_database"`
	QdrantHost       string `yaml:"qdrant_host"`
	QdrantPort       int    `yaml:"qdrant_port"`
	QdrantCollection string `yaml:"qdrant_collection"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider          string `yaml:"provider"`
	HuggingFaceAPIKey string `yaml:"huggingface_api_key"`
	HuggingFaceURL    string `yaml:"huggingface_url"`
	OpenAIAPIKey      string `yaml:"openai_api_key"`
	Model             string `yaml:"model"`
	// Dimension, when zero, is taken from the provider's default model.
	Dimension   int           `yaml:"dimension"`
	Concurrency int           `yaml:"concurrency"`
	MaxRetries  int           `yaml:"max_retries"`
	Backoff     time.Duration `yaml:"backoff"`
}

// ChunkingConfig configures document segmentation.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// AnswerConfig configures the optional answer generator.
type AnswerConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Store       StoreConfig     `yaml:"store"`
	Embedding   EmbeddingConfig `yaml:"embedding"`
	Chunking    ChunkingConfig  `yaml:"chunking"`
	TopK        int             `yaml:"top_k"`
	Answer      AnswerConfig    `yaml:"answer"`
	Log         LogConfig       `yaml:"log"`
	GitHubToken string          `yaml:"github_token"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "5000",
			MaxUploadBytes: 32 << 20,
			RequestTimeout: 5 * time.Minute,
		},
		Store: StoreConfig{
			Backend:          BackendMemory,
			SQLitePath:       "data/docqa.db",
			MongoDatabase:    "docqa",
			QdrantHost:       "localhost",
			QdrantPort:       6334,
			QdrantCollection: "documents",
		},
		Embedding: EmbeddingConfig{
			Provider:    ProviderHuggingFace,
			Concurrency: 1,
			MaxRetries:  8,
			Backoff:     2 * time.Second,
		},
		Chunking: ChunkingConfig{
			Size:    500,
			Overlap: 50,
		},
		TopK: 3,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if path is set),
// then environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", int(c.Server.MaxUploadBytes)))

	c.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", c.Store.Backend))
	c.Store.SQLitePath = getEnv("SQLITE_PATH", c.Store.SQLitePath)
	c.Store.MongoURI = getEnv("MONGODB_URI", c.Store.MongoURI)
	c.Store.MongoDatabase = getEnv("MONGODB_DATABASE", c.Store.MongoDatabase)
	c.Store.QdrantHost = getEnv("QDRANT_HOST", c.Store.QdrantHost)
	c.Store.QdrantPort = getEnvInt("QDRANT_PORT", c.Store.QdrantPort)
	c.Store.QdrantCollection = getEnv("QDRANT_COLLECTION", c.Store.QdrantCollection)

	c.Embedding.Provider = strings.ToLower(getEnv("EMBEDDING_PROVIDER", c.Embedding.Provider))
	c.Embedding.HuggingFaceAPIKey = getEnv("HUGGINGFACE_API_KEY", c.Embedding.HuggingFaceAPIKey)
	c.Embedding.HuggingFaceURL = getEnv("HUGGINGFACE_API_URL", c.Embedding.HuggingFaceURL)
	c.Embedding.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.Embedding.OpenAIAPIKey)
	c.Embedding.Model = getEnv("EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.Dimension = getEnvInt("EMBEDDING_DIMENSION", c.Embedding.Dimension)
	c.Embedding.Concurrency = getEnvInt("EMBEDDING_CONCURRENCY", c.Embedding.Concurrency)
	c.Embedding.MaxRetries = getEnvInt("EMBEDDING_MAX_RETRIES", c.Embedding.MaxRetries)
	if v := os.Getenv("EMBEDDING_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: EMBEDDING_BACKOFF: %v", ErrInvalidConfig, err)
		}
		c.Embedding.Backoff = d
	}

	c.Chunking.Size = getEnvInt("CHUNK_SIZE", c.Chunking.Size)
	c.Chunking.Overlap = getEnvInt("CHUNK_OVERLAP", c.Chunking.Overlap)
	c.TopK = getEnvInt("TOP_K", c.TopK)

	c.Answer.APIKey = getEnv("GROQ_API_KEY", c.Answer.APIKey)
	c.Answer.BaseURL = getEnv("ANSWER_BASE_URL", c.Answer.BaseURL)
	c.Answer.Model = getEnv("ANSWER_MODEL", c.Answer.Model)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.GitHubToken = getEnv("GITHUB_TOKEN", c.GitHubToken)
	return nil
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendMemory, BackendSQLite, BackendMongo, BackendQdrant:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Store.Backend == BackendMongo && c.Store.MongoURI == "" {
		errs = append(errs, errors.New("MONGODB_URI is required for the mongo backend"))
	}

	switch c.Embedding.Provider {
	case ProviderHuggingFace:
		if c.Embedding.HuggingFaceAPIKey == "" {
			errs = append(errs, errors.New("HUGGINGFACE_API_KEY is required for the huggingface provider"))
		}
	case ProviderOpenAI:
		if c.Embedding.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}

	if c.Chunking.Size <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.Chunking.Size))
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		errs = append(errs, fmt.Errorf("chunk overlap %d must be in [0, %d)", c.Chunking.Overlap, c.Chunking.Size))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", c.TopK))
	}
	if c.Embedding.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("embedding max retries must not be negative, got %d", c.Embedding.MaxRetries))
	}
	if c.Embedding.Dimension < 0 {
		errs = append(errs, fmt.Errorf("embedding dimension must not be negative, got %d", c.Embedding.Dimension))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
