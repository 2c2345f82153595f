package objectclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
)

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://docs/documents/42/hand book.pdf")
	require.NoError(t, err)
	assert.Equal(t, "docs", bucket)
	assert.Equal(t, "documents/42/hand book.pdf", key)

	for _, bad := range []string{"/tmp/file.txt", "s3://", "s3://bucket", "s3://bucket/", "s3:///key"} {
		_, _, err := ParseS3URI(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatS3URI_RoundTrip(t *testing.T) {
	key, err := ObjectKey("42", "Hand Book.pdf")
	require.NoError(t, err)
	uri := FormatS3URI("docs", key)
	assert.Equal(t, "s3://docs/documents/42/Hand_Book.pdf", uri)

	bucket, key, err := ParseS3URI(uri)
	require.NoError(t, err)
	assert.Equal(t, "docs", bucket)
	assert.Equal(t, "documents/42/Hand_Book.pdf", key)
}

func TestObjectKey_StripsDirectories(t *testing.T) {
	key, err := ObjectKey("7", "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "documents/7/passwd", key)
}

func TestObjectKey_RejectsUnsafeDocumentID(t *testing.T) {
	for _, id := range []string{"../../x", "..", "a/b", `a\b`, ""} {
		key, err := ObjectKey(id, "notes.txt")
		assert.ErrorIs(t, err, core.ErrValidation, id)
		assert.Empty(t, key, id)
	}
}
