// Package answer generates a natural-language answer from retrieved fragments
// with an OpenAI-compatible chat completion API.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultBaseURL points at Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	// DefaultModel is a small, fast chat model available on Groq.
	DefaultModel = "llama-3.1-8b-instant"
	// DefaultMaxTokens is the maximum context length before truncation (in tokens).
	DefaultMaxTokens = 6000
)

var ErrEmptyAnswer = errors.New("model returned no answer")

// Fragment is one retrieved chunk handed to the model as context.
type Fragment struct {
	Filename string
	Text     string
}

// Config configures a Generator.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxTokens bounds the context fragments sent with each question.
	MaxTokens int
	Logger    *slog.Logger
}

// Generator answers questions from context fragments.
type Generator struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewGenerator creates a Generator. Returns an error if no API key is configured.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("answer: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	)
	return &Generator{
		client:    &client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}, nil
}

// Generate asks the model to answer question using only the given fragments.
func (g *Generator) Generate(ctx context.Context, question string, fragments []Fragment) (string, error) {
	prompt := g.buildPrompt(question, fragments)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(g.model),
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyAnswer
	}
	return text, nil
}

const systemPrompt = `You answer questions about the user's uploaded documents.
Use only the numbered context fragments. If they do not contain the answer, say so.
Cite fragments by their number, e.g. [1].`

// buildPrompt numbers each fragment with its source file and appends the question.
// Fragments are dropped from the end once the token budget is spent.
func (g *Generator) buildPrompt(question string, fragments []Fragment) string {
	// Rough estimate: 1 token ≈ 4 characters
	budget := g.maxTokens * 4

	var b strings.Builder
	b.WriteString("Context:\n")
	used := 0
	for i, f := range fragments {
		entry := fmt.Sprintf("[%d] (%s)\n%s\n\n", i+1, f.Filename, f.Text)
		if used+len(entry) > budget && i > 0 {
			g.logger.Warn("Truncating answer context",
				"kept", i, "dropped", len(fragments)-i, "max_tokens", g.maxTokens)
			break
		}
		b.WriteString(entry)
		used += len(entry)
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}
