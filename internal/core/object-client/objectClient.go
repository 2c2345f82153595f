package objectclient

import (
	"fmt"
	"path"
	"strings"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
)

const s3Scheme = "s3://"

// IsS3URI reports whether p names an object rather than a local file.
func IsS3URI(p string) bool {
	return strings.HasPrefix(p, s3Scheme)
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(uri, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs a bucket and a key: %q", uri)
	}
	return bucket, key, nil
}

func FormatS3URI(bucket, key string) string {
	return s3Scheme + bucket + "/" + key
}

// ObjectKey creates a consistent S3 key layout, documents/<id>/<file>.
// The id must be a single path segment so keys never leave the documents/ prefix.
func ObjectKey(documentID, filename string) (string, error) {
	if err := core.ValidateDocumentID(documentID); err != nil {
		return "", err
	}
	filename = strings.TrimSpace(path.Base(filename))
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("documents", documentID, filename), nil
}
