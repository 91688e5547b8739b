package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	huggingFaceModelsURL = "https://api-inference.huggingface.co/models/"

	// DefaultHuggingFaceModel is the sentence-transformers model used when none is configured.
	DefaultHuggingFaceModel = "sentence-transformers/all-MiniLM-L6-v2"

	// DefaultHuggingFaceURL serves DefaultHuggingFaceModel feature extraction.
	DefaultHuggingFaceURL = huggingFaceModelsURL + DefaultHuggingFaceModel

	// MiniLMDimension is the vector size produced by all-MiniLM-L6-v2.
	MiniLMDimension = 384

	// DefaultRequestTimeout bounds a single provider call.
	DefaultRequestTimeout = 30 * time.Second

	// maxErrorBody limits how much of an error response ends up in error messages.
	maxErrorBody = 512
)

// HuggingFaceModelURL returns the hosted inference URL for a model ID such as
// "sentence-transformers/all-mpnet-base-v2".
func HuggingFaceModelURL(model string) string {
	return huggingFaceModelsURL + strings.TrimPrefix(model, "/")
}

// HuggingFaceConfig configures the Hugging Face inference provider.
type HuggingFaceConfig struct {
	// APIKey is the bearer token (required).
	APIKey string

	// URL is the model endpoint (default: DefaultHuggingFaceURL).
	URL string

	// Timeout bounds each request (default: DefaultRequestTimeout).
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// HuggingFaceProvider calls a Hugging Face feature-extraction endpoint.
type HuggingFaceProvider struct {
	client *http.Client
	url    string
	apiKey string
}

type featureRequest struct {
	Inputs string `json:"inputs"`
}

// hfError is the error body Hugging Face returns, e.g. while a model loads.
type hfError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// NewHuggingFaceProvider creates a provider for the given endpoint.
func NewHuggingFaceProvider(cfg HuggingFaceConfig) (*HuggingFaceProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("huggingface: API key is required")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultHuggingFaceURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRequestTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &HuggingFaceProvider{
		client: client,
		url:    cfg.URL,
		apiKey: cfg.APIKey,
	}, nil
}

// Name identifies the provider in logs.
func (p *HuggingFaceProvider) Name() string { return "huggingface" }

// Embed requests the feature vector for a single text.
// A 503 response is reported as ErrModelLoading so the Embedder can retry it.
func (p *HuggingFaceProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(featureRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: %s", ErrModelLoading, describeError(payload))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w (status %d): %s", ErrUnauthorized, resp.StatusCode, describeError(payload))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("huggingface error (status %d): %s", resp.StatusCode, describeError(payload))
	}

	var vector FeatureVector
	if err := json.Unmarshal(payload, &vector); err != nil {
		if errors.Is(err, ErrMalformedResponse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v: %s", ErrMalformedResponse, err, describeError(payload))
	}
	return vector.Vector, nil
}

// describeError extracts a readable message from an error body.
func describeError(payload []byte) string {
	var e hfError
	if err := json.Unmarshal(payload, &e); err == nil && e.Error != "" {
		if e.EstimatedTime > 0 {
			return fmt.Sprintf("%s (estimated %.0fs)", e.Error, e.EstimatedTime)
		}
		return e.Error
	}
	if len(payload) > maxErrorBody {
		payload = payload[:maxErrorBody]
	}
	if len(payload) == 0 {
		return "empty response body"
	}
	return string(payload)
}

// isTransient reports whether err is worth retrying.
func isTransient(err error) bool {
	return errors.Is(err, ErrModelLoading)
}
