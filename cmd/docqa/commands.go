package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/docqa/internal/app"
	"github.com/bull/docqa/internal/retrieval"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Ingest text, Markdown or PDF files",
	Long: `Extracts, segments and embeds each file, then stores it.

Every file is read and extracted before anything is stored, so an unsupported file
rejects the whole batch. Files are then ingested in order; each one is stored
completely or not at all.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	uploads := make([]app.Upload, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		uploads = append(uploads, app.Upload{Filename: filepath.Base(path), Data: data})
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Ingesting %d file(s)...\n", len(uploads))
	result, err := a.IngestUploads(ctx, uploads)
	printIngestResult(result)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func printIngestResult(result *retrieval.IngestResult) {
	if result == nil {
		return
	}
	fmt.Println()
	fmt.Printf("  Stored: %d\n", len(result.Stored))
	for _, name := range result.Stored {
		fmt.Printf("    - %s\n", name)
	}
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	if result.Failed != nil {
		fmt.Printf("  Failed: %s: %s\n", result.Failed.Filename, result.Failed.Reason)
	}
	fmt.Println()
}

var queryTopK int

var queryCmd = &cobra.Command{
	Use:   "query QUESTION",
	Short: "Show the fragments most similar to a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.Query(ctx, strings.Join(args, " "), queryTopK)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No documents stored yet.")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. %s (similarity %.4f)\n", i+1, r.Filename, r.Similarity)
			fmt.Printf("   %s\n\n", preview(r.Text, 240))
		}
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Answer a question from the stored documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		ans, err := a.Ask(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(ans.Text)
		fmt.Println()
		fmt.Printf("Sources: %s\n", strings.Join(ans.Sources, ", "))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.ListDocuments(ctx)
		if err != nil {
			return err
		}
		for _, d := range docs {
			fmt.Printf("%s  %-40s %4d chunks  %s\n", d.ID, d.Filename, d.Chunks, d.CreatedAt.Local().Format(time.DateTime))
		}
		fmt.Printf("%d document(s)\n", len(docs))
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve search and question tools over MCP stdio",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of fragments to return (default from config)")
}

// preview collapses whitespace and truncates s to at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
