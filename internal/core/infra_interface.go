package core

import (
	"context"
	"io"

	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

// ChunkStore persists documents with their chunk+vector pairs and answers
// similarity searches. It abstracts Postgres/pgvector and Badger so the
// pipeline never depends on a specific database.
type ChunkStore interface {
	// SaveDocument stores the document and all of its chunks atomically.
	SaveDocument(ctx context.Context, doc *models.Document, chunks []models.DocumentChunk) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	GetChunks(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
	// SearchChunks returns the limit most similar chunks the user may see.
	SearchChunks(ctx context.Context, queryVec []float32, user *models.UserContext, limit int) ([]models.ScoredChunk, error)
	// DeleteDocument removes the document and its chunks.
	DeleteDocument(ctx context.Context, id string) error
	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteFile(ctx context.Context, bucket, key string) error
}
