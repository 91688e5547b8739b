package github

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/go-github/v81/github"
)

// FetchedFile is a file downloaded from a repository.
type FetchedFile struct {
	Path    string // Path within the repository
	Content []byte
	URL     string // HTML URL of the file on GitHub
}

// Fetcher lists and downloads files under one directory of a repository.
type Fetcher struct {
	client   *Client
	owner    string
	repo     string
	basePath string
	ref      string
	match    func(name string) bool
}

// NewFetcher creates a fetcher for owner/repo at basePath.
// match selects which file names are listed; nil lists every file.
// An empty ref uses the repository's default branch.
func NewFetcher(client *Client, owner, repo, basePath, ref string, match func(name string) bool) *Fetcher {
	if match == nil {
		match = func(string) bool { return true }
	}
	return &Fetcher{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: path.Clean("/" + basePath)[1:],
		ref:      ref,
		match:    match,
	}
}

// Repository returns "owner/repo".
func (f *Fetcher) Repository() string {
	return f.owner + "/" + f.repo
}

func (f *Fetcher) contentOptions() *github.RepositoryContentGetOptions {
	if f.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.ref}
}

// ListFiles recursively lists matching files as repository paths.
func (f *Fetcher) ListFiles(ctx context.Context) ([]string, error) {
	return f.listRecursive(ctx, f.basePath)
}

func (f *Fetcher) listRecursive(ctx context.Context, dir string) ([]string, error) {
	var files []string

	fileContent, dirContents, _, err := f.client.Repositories.GetContents(
		ctx, f.owner, f.repo, dir, f.contentOptions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", dir, err)
	}

	// The base path names a single file.
	if fileContent != nil {
		if f.match(fileContent.GetName()) {
			files = append(files, fileContent.GetPath())
		}
		return files, nil
	}

	for _, item := range dirContents {
		switch item.GetType() {
		case "file":
			if f.match(item.GetName()) {
				files = append(files, item.GetPath())
			}
		case "dir":
			subFiles, err := f.listRecursive(ctx, item.GetPath())
			if err != nil {
				return nil, err
			}
			files = append(files, subFiles...)
		}
	}

	return files, nil
}

// FetchFile downloads one file listed by ListFiles.
// DownloadContents is used so files above the contents API's 1MB inline limit still work.
func (f *Fetcher) FetchFile(ctx context.Context, filePath string) (*FetchedFile, error) {
	body, meta, _, err := f.client.Repositories.DownloadContentsWithMeta(
		ctx, f.owner, f.repo, filePath, f.contentOptions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", filePath, err)
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	return &FetchedFile{
		Path:    filePath,
		Content: content,
		URL:     meta.GetHTMLURL(),
	}, nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit affecting the base path.
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(
		ctx,
		f.owner,
		f.repo,
		&github.CommitsListOptions{
			SHA:  f.ref,
			Path: f.basePath,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}

	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.basePath)
	}

	return commits[0].GetSHA(), nil
}
