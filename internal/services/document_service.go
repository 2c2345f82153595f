package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
	objectclient "github.com/markdave123-py/knowledge-assistant/internal/core/object-client"
	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

// DocumentService manages stored documents and their uploaded sources.
type DocumentService struct {
	store   core.ChunkStore
	storage core.ObjectClient
	bucket  string
	logger  *slog.Logger
}

// NewDocumentService builds the service; storage may be nil when uploads are disabled.
func NewDocumentService(store core.ChunkStore, storage core.ObjectClient, bucket string) *DocumentService {
	return &DocumentService{
		store:   store,
		storage: storage,
		bucket:  bucket,
		logger:  slog.Default().With("component", "document_service"),
	}
}

// UploadsEnabled reports whether an object store is configured.
func (s *DocumentService) UploadsEnabled() bool {
	return s.storage != nil
}

// Upload stores the source file and returns the s3:// URI to ingest from.
func (s *DocumentService) Upload(ctx context.Context, documentID, filename, contentType string, data io.Reader) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("%w: object storage not configured", core.ErrConfiguration)
	}
	key, err := objectclient.ObjectKey(documentID, filename)
	if err != nil {
		return "", err
	}

	uri, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrInternal, err)
	}
	return uri, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.store.GetDocument(ctx, id)
}

func (s *DocumentService) List(ctx context.Context) ([]models.Document, error) {
	return s.store.ListDocuments(ctx)
}

func (s *DocumentService) Chunks(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	return s.store.GetChunks(ctx, documentID)
}

// Delete removes the document with its chunks, then its uploaded source.
// A source that cannot be removed is logged, not returned.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}

	if s.storage != nil && objectclient.IsS3URI(doc.StorageURL) {
		bucket, key, err := objectclient.ParseS3URI(doc.StorageURL)
		if err == nil {
			err = s.storage.DeleteFile(ctx, bucket, key)
		}
		if err != nil {
			s.logger.Warn("source object not removed", "documentId", id, "source", doc.StorageURL, "err", err)
		}
	}
	return nil
}
