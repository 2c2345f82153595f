package core

import (
	"context"
)

// DocumentExtractor converts raw document bytes into plain text.
//
// contentType is the declared MIME type; filename is used as a fallback hint
// when the MIME type is generic. Implementations never return partial text.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, data []byte, contentType, filename string) (string, error)
}
