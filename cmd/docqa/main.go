// Package main provides the docqa CLI for ingesting documents and asking questions about them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/docqa/internal/app"
	"github.com/bull/docqa/internal/config"
	"github.com/bull/docqa/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documents",
	Long: `docqa splits documents into overlapping word windows, embeds them, and answers
questions from the most similar fragments.

Configuration comes from an optional YAML file (--config) and environment variables
such as STORE_BACKEND, HUGGINGFACE_API_KEY, OPENAI_API_KEY and GROQ_API_KEY.
Use a persistent store (sqlite, mongo or qdrant) when running commands separately.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("DOCQA_CONFIG"), "path to a YAML config file")

	rootCmd.AddCommand(ingestCmd, queryCmd, askCmd, listCmd, importGitHubCmd, mcpCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// openApp loads configuration and connects the store. Logs go to stderr so stdout stays
// usable for command output and the MCP stdio transport.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise: %w", err)
	}
	return a, nil
}
