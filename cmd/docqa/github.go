package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/docqa/internal/app"
	"github.com/bull/docqa/internal/extract"
	ghclient "github.com/bull/docqa/internal/github"
)

var importOpts struct {
	owner string
	repo  string
	path  string
	ref   string
}

var importGitHubCmd = &cobra.Command{
	Use:   "import-github",
	Short: "Ingest supported files from a GitHub repository",
	Long: `Fetches every .txt, .md and .pdf file under --path in a GitHub repository
and ingests them like uploaded files.

Environment variables:
  GITHUB_TOKEN   GitHub token for higher rate limits (optional)`,
	Args: cobra.NoArgs,
	RunE: runImportGitHub,
}

func init() {
	f := importGitHubCmd.Flags()
	f.StringVar(&importOpts.owner, "owner", "", "repository owner")
	f.StringVar(&importOpts.repo, "repo", "", "repository name")
	f.StringVar(&importOpts.path, "path", "", "directory or file inside the repository")
	f.StringVar(&importOpts.ref, "ref", "", "branch, tag or commit (default branch when empty)")
	_ = importGitHubCmd.MarkFlagRequired("owner")
	_ = importGitHubCmd.MarkFlagRequired("repo")
}

func runImportGitHub(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := ghclient.NewClient(a.Config.GitHubToken)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}
	fetcher := ghclient.NewFetcher(client, importOpts.owner, importOpts.repo, importOpts.path, importOpts.ref, extract.Supported)

	sha, err := fetcher.GetLatestCommitSHA(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve commit: %w", err)
	}

	fmt.Printf("Listing files in %s...\n", fetcher.Repository())
	files, err := fetcher.ListFiles(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No supported files found.")
		return nil
	}

	uploads := make([]app.Upload, 0, len(files))
	for _, p := range files {
		file, err := fetcher.FetchFile(ctx, p)
		if err != nil {
			return err
		}
		fmt.Printf("  fetched %s (%d bytes)\n", file.Path, len(file.Content))
		// Directory layout matters for repository imports, so keep the full path.
		uploads = append(uploads, app.Upload{Filename: file.Path, Data: file.Content})
	}

	fmt.Println()
	fmt.Printf("Ingesting %d file(s)...\n", len(uploads))
	result, err := a.IngestUploads(ctx, uploads)
	printIngestResult(result)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("  Commit: %s\n", sha)
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}
