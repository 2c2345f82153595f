package services

import (
	"context"
	"fmt"
	"os"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
	objectclient "github.com/markdave123-py/knowledge-assistant/internal/core/object-client"
)

// SourceReader loads document bytes from a local path or an s3:// URI.
type SourceReader struct {
	objects core.ObjectClient
}

// NewSourceReader builds a reader; objects may be nil when S3 is not configured.
func NewSourceReader(objects core.ObjectClient) *SourceReader {
	return &SourceReader{objects: objects}
}

// Read fails with core.ErrExtraction when the source cannot be read.
func (r *SourceReader) Read(ctx context.Context, location string) ([]byte, error) {
	if !objectclient.IsS3URI(location) {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", core.ErrExtraction, location, err)
		}
		return data, nil
	}

	if r.objects == nil {
		return nil, fmt.Errorf("%w: object storage not configured for %s", core.ErrExtraction, location)
	}
	bucket, key, err := objectclient.ParseS3URI(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	data, err := r.objects.GetFile(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	return data, nil
}
