//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStorage creates a store on a throwaway collection.
// Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T) *QdrantStorage {
	storage, err := NewQdrantStorage(QdrantConfig{
		Host:       "localhost",
		Port:       6334,
		Collection: "docqa_test_" + uuid.NewString()[:8],
		Dimension:  3,
	})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	require.NoError(t, storage.EnsureCollection(context.Background()), "Failed to ensure collection")
	t.Cleanup(func() {
		_ = storage.client.DeleteCollection(context.Background(), storage.collection)
		storage.Close()
	})
	return storage
}

func TestQdrant_SaveFindAllRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := &Document{
		ID:        uuid.NewString(),
		Filename:  "notes.md",
		Title:     "Notes",
		Content:   "# Notes\n\nalpha beta",
		CreatedAt: now,
		Chunks: []Chunk{
			{Index: 0, Text: "Notes alpha", Embedding: []float32{1, 0, 0}},
			{Index: 1, Text: "alpha beta", Embedding: []float32{0, 1, 0}},
		},
	}
	require.NoError(t, storage.Save(ctx, doc))

	docs, err := storage.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	got := docs[0]
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.Filename, got.Filename)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Content, got.Content)
	assert.WithinDuration(t, doc.CreatedAt, got.CreatedAt, time.Millisecond)
	require.Len(t, got.Chunks, 2)
	for i, c := range got.Chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, doc.Chunks[i].Text, c.Text)
		// Cosine collections normalise vectors on write.
		assert.InDeltaSlice(t, doc.Chunks[i].Embedding, c.Embedding, 1e-6)
	}
}

func TestQdrant_FindAllPaginates(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	// Enough chunks to span several scroll pages.
	chunks := make([]Chunk, int(scrollBatchSize)*2+5)
	for i := range chunks {
		chunks[i] = Chunk{Index: i, Text: "chunk", Embedding: []float32{1, float32(i), 0}}
	}
	doc := &Document{ID: uuid.NewString(), Filename: "big.txt", Content: "x", Chunks: chunks, CreatedAt: time.Now()}
	require.NoError(t, storage.Save(ctx, doc))

	docs, err := storage.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Len(t, docs[0].Chunks, len(chunks))
}

func TestQdrant_RejectsWrongDimension(t *testing.T) {
	storage := setupTestStorage(t)

	doc := &Document{
		ID:       uuid.NewString(),
		Filename: "wide.txt",
		Chunks:   []Chunk{{Index: 0, Text: "a", Embedding: []float32{1, 2, 3, 4}}},
	}
	err := storage.Save(context.Background(), doc)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestQdrant_CollectionInfo(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	doc := &Document{
		ID:       uuid.NewString(),
		Filename: "a.txt",
		Chunks:   []Chunk{{Index: 0, Text: "a", Embedding: []float32{1, 0, 0}}},
	}
	require.NoError(t, storage.Save(ctx, doc))

	info, err := storage.GetCollectionInfo(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.PointsCount)
}
