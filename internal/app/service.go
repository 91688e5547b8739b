package app

import (
	"context"
	"fmt"

	"github.com/bull/docqa/internal/retrieval"
)

// Upload is a named file as received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

// IngestUploads extracts every upload first and only then ingests them in order,
// so an unsupported or empty file rejects the whole batch before anything is stored.
func (a *App) IngestUploads(ctx context.Context, uploads []Upload) (*retrieval.IngestResult, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", retrieval.ErrInvalidInput)
	}

	sources := make([]retrieval.Source, len(uploads))
	for i, u := range uploads {
		res, err := a.Extractor.Extract(u.Filename, u.Data)
		if err != nil {
			return nil, err
		}
		sources[i] = retrieval.Source{Filename: u.Filename, Title: res.Title, Text: res.Text}
		a.Logger.Debug("Extracted upload", "filename", u.Filename, "kind", res.Kind, "bytes", len(u.Data))
	}

	return a.Pipeline.IngestFiles(ctx, sources)
}

// Query ranks stored chunks against question.
func (a *App) Query(ctx context.Context, question string, k int) ([]retrieval.Result, error) {
	return a.Pipeline.Query(ctx, question, k)
}

// Ask answers question from the best-ranked chunks.
func (a *App) Ask(ctx context.Context, question string) (*retrieval.Answer, error) {
	return a.Pipeline.Ask(ctx, question)
}

// ListDocuments summarises stored documents.
func (a *App) ListDocuments(ctx context.Context) ([]retrieval.DocumentSummary, error) {
	return a.Pipeline.ListDocuments(ctx)
}

// Health reports whether the store is reachable.
func (a *App) Health(ctx context.Context) error {
	return a.Store.Health(ctx)
}
