package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// DefaultMongoDatabase is used when no database name is configured.
	DefaultMongoDatabase = "docqa"
	mongoCollection      = "documents"
)

// mongoDocument is the stored shape: one record per file with chunks embedded.
type mongoDocument struct {
	ID         string       `bson:"_id"`
	Filename   string       `bson:"filename"`
	Title      string       `bson:"title,omitempty"`
	Content    string       `bson:"content"`
	Chunks     []mongoChunk `bson:"chunks"`
	UploadedAt time.Time    `bson:"uploadedAt"`
}

type mongoChunk struct {
	Index     int       `bson:"index"`
	Text      string    `bson:"text"`
	Embedding []float32 `bson:"embedding"`
}

// MongoStore keeps each document and its chunks in a single MongoDB record,
// so a Save is atomic without a transaction.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to uri and verifies the server is reachable.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb: connection URI is required")
	}
	if database == "" {
		database = DefaultMongoDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(mongoCollection),
	}
	if err := s.Health(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Save inserts the document with all chunks embedded.
func (s *MongoStore) Save(ctx context.Context, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	record := mongoDocument{
		ID:         doc.ID,
		Filename:   doc.Filename,
		Title:      doc.Title,
		Content:    doc.Content,
		Chunks:     make([]mongoChunk, len(doc.Chunks)),
		UploadedAt: doc.CreatedAt.UTC(),
	}
	for i, c := range doc.Chunks {
		record.Chunks[i] = mongoChunk{Index: c.Index, Text: c.Text, Embedding: c.Embedding}
	}

	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("inserting %s: %w", doc.Filename, err)
	}
	return nil
}

// FindAll returns every document, oldest upload first.
func (s *MongoStore) FindAll(ctx context.Context) ([]*Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}

	var records []mongoDocument
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decoding documents: %w", err)
	}

	docs := make([]*Document, len(records))
	for i, r := range records {
		doc := &Document{
			ID:        r.ID,
			Filename:  r.Filename,
			Title:     r.Title,
			Content:   r.Content,
			Chunks:    make([]Chunk, len(r.Chunks)),
			CreatedAt: r.UploadedAt,
		}
		for j, c := range r.Chunks {
			doc.Chunks[j] = Chunk{Index: c.Index, Text: c.Text, Embedding: c.Embedding}
		}
		docs[i] = doc
	}
	return docs, nil
}

// Health pings the primary.
func (s *MongoStore) Health(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb ping: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
