package storage

import (
	"fmt"
	"math"
	"time"
)

// Document is an ingested file with all of its embedded chunks.
// Stores persist a Document and its Chunks as one unit.
type Document struct {
	ID        string    // UUID
	Filename  string    // Original upload name, used for source attribution
	Title     string    // First heading for Markdown sources, empty otherwise
	Content   string    // Full extracted text
	Chunks    []Chunk   // Ordered by Index
	CreatedAt time.Time // When ingestion completed
}

// Chunk is one overlapping word window of a document with its embedding vector.
type Chunk struct {
	Index     int       // Position in document (0, 1, 2...)
	Text      string    // Window words joined by single spaces
	Embedding []float32 // Model-defined dimension, equal for every chunk
}

// Validate checks what every store relies on before writing:
// an ID and filename, contiguous chunk indices from zero, non-empty text,
// and one shared, non-empty, finite embedding dimension.
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDocument)
	}
	if d.Filename == "" {
		return fmt.Errorf("%w: missing filename", ErrInvalidDocument)
	}
	if len(d.Chunks) == 0 {
		return fmt.Errorf("%w: %s has no chunks", ErrInvalidDocument, d.Filename)
	}

	dim := len(d.Chunks[0].Embedding)
	for i, c := range d.Chunks {
		if c.Index != i {
			return fmt.Errorf("%w: chunk %d has index %d", ErrInvalidDocument, i, c.Index)
		}
		if c.Text == "" {
			return fmt.Errorf("%w: chunk %d has no text", ErrInvalidDocument, i)
		}
		if !ValidEmbedding(c.Embedding) {
			return fmt.Errorf("%w: chunk %d has a missing or malformed embedding", ErrInvalidDocument, i)
		}
		if len(c.Embedding) != dim {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(c.Embedding), dim)
		}
	}
	return nil
}

// ValidEmbedding reports whether v is non-empty and holds only finite values.
func ValidEmbedding(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// clone returns a deep copy so callers cannot mutate stored state.
func (d *Document) clone() *Document {
	cp := *d
	cp.Chunks = make([]Chunk, len(d.Chunks))
	for i, c := range d.Chunks {
		cp.Chunks[i] = Chunk{
			Index:     c.Index,
			Text:      c.Text,
			Embedding: append([]float32(nil), c.Embedding...),
		}
	}
	return &cp
}
