package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docqa/internal/retrieval"
)

func toFragments(results []retrieval.Result) []Fragment {
	fragments := make([]Fragment, len(results))
	for i, r := range results {
		fragments[i] = Fragment{Text: r.Text, Filename: r.Filename, Similarity: r.Similarity}
	}
	return fragments
}

// makeSearchHandler creates the search_documents tool handler.
func makeSearchHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, SearchDocumentsInput,
) (*mcp.CallToolResult, SearchDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchDocumentsInput) (
		*mcp.CallToolResult, SearchDocumentsOutput, error,
	) {
		results, err := svc.Query(ctx, input.Query, input.TopK)
		if err != nil {
			return nil, SearchDocumentsOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			return nil, SearchDocumentsOutput{
				Results: []Fragment{},
				Message: "No documents have been uploaded yet.",
			}, nil
		}
		return nil, SearchDocumentsOutput{Results: toFragments(results)}, nil
	}
}

// makeAskHandler creates the ask_documents tool handler.
func makeAskHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, AskDocumentsInput,
) (*mcp.CallToolResult, AskDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskDocumentsInput) (
		*mcp.CallToolResult, AskDocumentsOutput, error,
	) {
		ans, err := svc.Ask(ctx, input.Question)
		if err != nil {
			return nil, AskDocumentsOutput{}, fmt.Errorf("ask failed: %w", err)
		}
		return nil, AskDocumentsOutput{
			Answer:    ans.Text,
			Sources:   ans.Sources,
			Fragments: toFragments(ans.Fragments),
		}, nil
	}
}

// makeListHandler creates the list_documents tool handler.
func makeListHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		docs, err := svc.ListDocuments(ctx)
		if err != nil {
			return nil, ListDocumentsOutput{}, fmt.Errorf("failed to list documents: %w", err)
		}

		infos := make([]DocumentInfo, len(docs))
		for i, d := range docs {
			infos[i] = DocumentInfo{
				ID:         d.ID,
				Filename:   d.Filename,
				Title:      d.Title,
				Chunks:     d.Chunks,
				UploadedAt: d.CreatedAt,
			}
		}
		return nil, ListDocumentsOutput{Documents: infos, Count: len(infos)}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
// An unreachable store is reported in the output rather than failing the call.
func makeStatusHandler(svc Service, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		if err := svc.Health(ctx); err != nil {
			logger.Warn("Store health check failed", "error", err)
			return nil, StatusOutput{Healthy: false, Error: err.Error()}, nil
		}

		docs, err := svc.ListDocuments(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("failed to list documents: %w", err)
		}

		out := StatusOutput{Healthy: true, TotalDocs: len(docs)}
		var last time.Time
		for _, d := range docs {
			out.TotalChunks += d.Chunks
			if d.CreatedAt.After(last) {
				last = d.CreatedAt
			}
		}
		if !last.IsZero() {
			out.LastUpload = last.UTC().Format(time.RFC3339)
		}
		return nil, out, nil
	}
}
