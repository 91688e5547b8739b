// Package retrieval ingests documents into a store and answers similarity queries over them.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bull/docqa/internal/answer"
	"github.com/bull/docqa/internal/ranking"
	"github.com/bull/docqa/internal/segment"
	"github.com/bull/docqa/internal/storage"
)

// DefaultTopK is the number of fragments a query returns when none is requested.
const DefaultTopK = 3

// Store persists whole documents and returns all of them for ranking.
type Store interface {
	Save(ctx context.Context, doc *storage.Document) error
	FindAll(ctx context.Context) ([]*storage.Document, error)
}

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Answerer writes an answer to a question from ranked fragments.
type Answerer interface {
	Generate(ctx context.Context, question string, fragments []answer.Fragment) (string, error)
}

// Result is one ranked fragment.
type Result struct {
	Text       string  `json:"text"`
	Filename   string  `json:"filename"`
	Similarity float64 `json:"similarity"`
	DocumentID string  `json:"document_id,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
}

// Answer is a generated answer with the fragments it was based on.
type Answer struct {
	Text      string   `json:"answer"`
	Sources   []string `json:"sources"`
	Fragments []Result `json:"fragments"`
}

// DocumentSummary describes a stored document without its chunks.
type DocumentSummary struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Title     string    `json:"title,omitempty"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}

// Options configures a Pipeline.
type Options struct {
	// Segmenter splits documents (default: 500-word windows with 50 words of overlap).
	Segmenter *segment.Segmenter
	// TopK is used when a query asks for k == 0 (default DefaultTopK).
	TopK int
	// Answerer is optional; without one Ask returns ErrAnswerUnavailable.
	Answerer Answerer
	Logger   *slog.Logger
}

// Pipeline orchestrates ingestion (segment, embed, store) and retrieval (embed, rank).
type Pipeline struct {
	store     Store
	embedder  Embedder
	segmenter *segment.Segmenter
	answerer  Answerer
	topK      int
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline creates a pipeline over store and embedder.
func NewPipeline(store Store, embedder Embedder, opts Options) *Pipeline {
	if opts.Segmenter == nil {
		opts.Segmenter, _ = segment.NewSegmenter(0, 0)
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		store:     store,
		embedder:  embedder,
		segmenter: opts.Segmenter,
		answerer:  opts.Answerer,
		topK:      opts.TopK,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// CanAnswer reports whether Ask has an Answerer to call.
func (p *Pipeline) CanAnswer() bool { return p.answerer != nil }

// Source is one named text to ingest.
type Source struct {
	Filename string
	Title    string
	Text     string
}

// Ingest segments text, embeds every chunk and saves the document in one store call.
// Nothing is stored unless every chunk was embedded.
func (p *Pipeline) Ingest(ctx context.Context, filename, text string) (*storage.Document, error) {
	return p.ingest(ctx, Source{Filename: filename, Text: text})
}

func (p *Pipeline) ingest(ctx context.Context, src Source) (*storage.Document, error) {
	if strings.TrimSpace(src.Filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}

	texts := p.segmenter.Split(src.Text)
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: %s contains no text", ErrInvalidInput, src.Filename)
	}
	p.logger.Debug("Segmented document", "filename", src.Filename, "chunks", len(texts))

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}

	// Staging buffer: the document is assembled in full before the store sees it.
	doc := &storage.Document{
		ID:        uuid.New().String(),
		Filename:  src.Filename,
		Title:     src.Title,
		Content:   src.Text,
		Chunks:    make([]storage.Chunk, len(texts)),
		CreatedAt: p.now().UTC(),
	}
	for i, text := range texts {
		doc.Chunks[i] = storage.Chunk{Index: i, Text: text, Embedding: embeddings[i]}
	}

	if err := p.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	p.logger.Info("Ingested document", "filename", src.Filename, "chunks", len(doc.Chunks))
	return doc, nil
}

// IngestResult contains statistics about a multi-file ingestion.
type IngestResult struct {
	Stored      []string // Filenames saved, in order
	TotalChunks int
	Failed      *FailedDoc
	Duration    time.Duration
}

// FailedDoc represents the document that stopped an ingestion.
type FailedDoc struct {
	Filename string
	Reason   string
}

// IngestFiles ingests sources in order and stops at the first failure.
// Each document is atomic; the result lists the ones stored before the failure.
func (p *Pipeline) IngestFiles(ctx context.Context, sources []Source) (*IngestResult, error) {
	start := time.Now()
	result := &IngestResult{Stored: []string{}}

	for _, src := range sources {
		doc, err := p.ingest(ctx, src)
		if err != nil {
			p.logger.Warn("Failed to ingest document", "filename", src.Filename, "error", err)
			result.Failed = &FailedDoc{Filename: src.Filename, Reason: err.Error()}
			result.Duration = time.Since(start)
			return result, fmt.Errorf("ingest %s: %w", src.Filename, err)
		}
		result.Stored = append(result.Stored, doc.Filename)
		result.TotalChunks += len(doc.Chunks)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"documents", len(result.Stored),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}

type chunkRef struct {
	docID    string
	filename string
	index    int
	text     string
}

// Query embeds question and ranks every stored chunk against it by cosine similarity.
// k == 0 uses the configured default. An empty store yields an empty result.
func (p *Pipeline) Query(ctx context.Context, question string, k int) ([]Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if k < 0 {
		return nil, fmt.Errorf("%w: top_k must not be negative", ErrInvalidInput)
	}
	if k == 0 {
		k = p.topK
	}

	queryVector, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	docs, err := p.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	var candidates []ranking.Candidate[chunkRef]
	for _, doc := range docs {
		for _, chunk := range doc.Chunks {
			if !storage.ValidEmbedding(chunk.Embedding) {
				p.logger.Warn("Skipping chunk without a usable embedding",
					"filename", doc.Filename, "chunk", chunk.Index)
				continue
			}
			candidates = append(candidates, ranking.Candidate[chunkRef]{
				Vector: chunk.Embedding,
				Payload: chunkRef{
					docID:    doc.ID,
					filename: doc.Filename,
					index:    chunk.Index,
					text:     chunk.Text,
				},
			})
		}
	}

	scored, err := ranking.TopK(queryVector, candidates, k)
	if err != nil {
		p.logger.Error("Stored embeddings do not match the query", "error", err)
		return nil, fmt.Errorf("rank chunks: %w", err)
	}

	results := make([]Result, len(scored))
	for i, s := range scored {
		results[i] = Result{
			Text:       s.Payload.text,
			Filename:   s.Payload.filename,
			Similarity: s.Score,
			DocumentID: s.Payload.docID,
			ChunkIndex: s.Payload.index,
		}
	}

	p.logger.Debug("Query ranked", "candidates", len(candidates), "returned", len(results))
	return results, nil
}

// Ask retrieves the default number of fragments and has the Answerer write an answer.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	if p.answerer == nil {
		return nil, ErrAnswerUnavailable
	}

	results, err := p.Query(ctx, question, 0)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoContext
	}

	fragments := make([]answer.Fragment, len(results))
	for i, r := range results {
		fragments[i] = answer.Fragment{Filename: r.Filename, Text: r.Text}
	}

	text, err := p.answerer.Generate(ctx, question, fragments)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &Answer{Text: text, Sources: sourceFilenames(results), Fragments: results}, nil
}

// sourceFilenames lists each filename once, in rank order.
func sourceFilenames(results []Result) []string {
	seen := make(map[string]bool, len(results))
	sources := make([]string, 0, len(results))
	for _, r := range results {
		if !seen[r.Filename] {
			seen[r.Filename] = true
			sources = append(sources, r.Filename)
		}
	}
	return sources
}

// ListDocuments summarises every stored document, oldest first.
func (p *Pipeline) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	docs, err := p.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	summaries := make([]DocumentSummary, len(docs))
	for i, doc := range docs {
		summaries[i] = DocumentSummary{
			ID:        doc.ID,
			Filename:  doc.Filename,
			Title:     doc.Title,
			Chunks:    len(doc.Chunks),
			CreatedAt: doc.CreatedAt,
		}
	}
	return summaries, nil
}
