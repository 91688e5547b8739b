package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// DefaultCollection is the Qdrant collection holding documents and chunks.
	DefaultCollection = "documents"

	vectorName        = "content"
	pointTypeDocument = "document"
	pointTypeChunk    = "chunk"
	scrollBatchSize   = uint32(256)
)

// QdrantStorage stores each document as a vectorless parent point plus one point per chunk.
type QdrantStorage struct {
	client     *qdrant.Client
	host       string
	port       int
	collection string
	dimension  int
}

// QdrantConfig configures the Qdrant store.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	// Dimension is the chunk vector size used when creating the collection.
	Dimension int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(cfg QdrantConfig) (*QdrantStorage, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("qdrant: vector dimension must be positive, got %d", cfg.Dimension)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:     client,
		host:       cfg.Host,
		port:       cfg.Port,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}

	ctx := context.Background()
	if err := storage.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

// retryPolicy is shared by health checks and upserts.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error { return s.Health(ctx) }, retryPolicy(ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection creates the collection with a named cosine vector if it is missing.
// Idempotent - safe to call multiple times.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	// Named vectors let parent points (no vector) and chunks share a collection.
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	for _, field := range []string{"type", "document_id"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}

	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Save upserts the parent point and every chunk point in a single waited request.
func (s *QdrantStorage) Save(ctx context.Context, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if got := len(doc.Chunks[0].Embedding); got != s.dimension {
		return fmt.Errorf("%w: document has %d dimensions, collection expects %d",
			ErrDimensionMismatch, got, s.dimension)
	}
	docID, err := uuid.Parse(doc.ID)
	if err != nil {
		return fmt.Errorf("%w: id %q is not a UUID", ErrInvalidDocument, doc.ID)
	}

	points := make([]*qdrant.PointStruct, 0, len(doc.Chunks)+1)
	points = append(points, &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(doc.ID),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
		Payload: qdrant.NewValueMap(map[string]any{
			"type":       pointTypeDocument,
			"filename":   doc.Filename,
			"title":      doc.Title,
			"content":    doc.Content,
			"created_at": doc.CreatedAt.UTC().Format(time.RFC3339Nano),
		}),
	})

	for _, chunk := range doc.Chunks {
		points = append(points, &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(chunkPointID(docID, chunk.Index)),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				vectorName: qdrant.NewVector(chunk.Embedding...),
			}),
			Payload: qdrant.NewValueMap(map[string]any{
				"type":        pointTypeChunk,
				"document_id": doc.ID,
				"chunk_index": chunk.Index,
				"text":        chunk.Text,
			}),
		})
	}

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(operation, retryPolicy(ctx)); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", doc.Filename, err)
	}
	return nil
}

// isPermanent reports whether a Qdrant error will not go away on retry.
func isPermanent(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.NotFound:
		return true
	default:
		return false
	}
}

// chunkPointID derives a stable point ID from the document ID and chunk index.
func chunkPointID(docID uuid.UUID, index int) string {
	return uuid.NewSHA1(docID, []byte(strconv.Itoa(index))).String()
}

// FindAll scrolls the whole collection and regroups chunks under their documents.
// Documents without a saved parent point are dropped.
func (s *QdrantStorage) FindAll(ctx context.Context) ([]*Document, error) {
	byID := make(map[string]*Document)
	var chunks []struct {
		docID string
		chunk Chunk
	}

	var offset *qdrant.PointId
	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          qdrant.PtrOf(scrollBatchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll points: %w", err)
		}

		page := results
		// The scroll offset is inclusive; skip the point already seen.
		if offset != nil && len(page) > 0 && page[0].Id.GetUuid() == offset.GetUuid() {
			page = page[1:]
		}

		for _, point := range page {
			payload := point.Payload
			switch payload["type"].GetStringValue() {
			case pointTypeDocument:
				createdAt, err := time.Parse(time.RFC3339Nano, payload["created_at"].GetStringValue())
				if err != nil {
					createdAt = time.Time{} // Use zero time if parse fails
				}
				byID[point.Id.GetUuid()] = &Document{
					ID:        point.Id.GetUuid(),
					Filename:  payload["filename"].GetStringValue(),
					Title:     payload["title"].GetStringValue(),
					Content:   payload["content"].GetStringValue(),
					CreatedAt: createdAt,
				}
			case pointTypeChunk:
				var embedding []float32
				if vectors := point.Vectors.GetVectors(); vectors != nil {
					embedding = denseData(vectors.GetVectors()[vectorName])
				}
				chunks = append(chunks, struct {
					docID string
					chunk Chunk
				}{
					docID: payload["document_id"].GetStringValue(),
					chunk: Chunk{
						Index:     int(payload["chunk_index"].GetIntegerValue()),
						Text:      payload["text"].GetStringValue(),
						Embedding: embedding,
					},
				})
			}
		}

		if uint32(len(results)) < scrollBatchSize || len(page) == 0 {
			break
		}
		offset = results[len(results)-1].Id
	}

	for _, c := range chunks {
		if doc, ok := byID[c.docID]; ok {
			doc.Chunks = append(doc.Chunks, c.chunk)
		}
	}

	docs := make([]*Document, 0, len(byID))
	for _, doc := range byID {
		sort.Slice(doc.Chunks, func(i, j int) bool { return doc.Chunks[i].Index < doc.Chunks[j].Index })
		docs = append(docs, doc)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

// denseData reads a dense vector, falling back to the legacy data field.
func denseData(v *qdrant.VectorOutput) []float32 {
	if data := v.GetDense().GetData(); len(data) > 0 {
		return data
	}
	return v.GetData() //nolint:staticcheck // older servers only fill data
}

// CollectionInfo contains collection statistics
type CollectionInfo struct {
	PointsCount uint64
}

// GetCollectionInfo retrieves collection statistics including total points count.
func (s *QdrantStorage) GetCollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	collection, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, s.collection)
		}
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	return &CollectionInfo{
		PointsCount: collection.GetPointsCount(),
	}, nil
}
