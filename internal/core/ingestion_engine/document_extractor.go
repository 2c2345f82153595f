package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

func NewDocconvExtractor() *DocconvExtractor {
	return &DocconvExtractor{
		convertPDF: docconv.ConvertPDF,
		logger:     slog.Default().With("component", "extractor"),
	}
}

// ExtractText returns the plain text of a PDF or UTF-8 text document.
// Any other type fails with core.ErrUnsupportedFileType; any read or
// conversion failure fails with core.ErrExtraction. No partial text is returned.
func (e *DocconvExtractor) ExtractText(ctx context.Context, data []byte, contentType, filename string) (string, error) {
	kind := ResolveFileType(contentType, filename)
	if kind == "" {
		return "", fmt.Errorf("%w: %s", core.ErrUnsupportedFileType, contentType)
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}

	switch kind {
	case MimePDF:
		return e.extractPDF(ctx, data)
	default:
		return extractPlainText(data)
	}
}

// extractPDF concatenates the text of every page, each page followed by a newline.
func (e *DocconvExtractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	body, meta, err := e.convertPDF(bytes.NewReader(data))
	if err != nil {
		e.logger.Error("pdf extraction failed", "bytes", len(data), "err", err)
		return "", fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}

	// Converters that keep page breaks separate pages with form feeds.
	pages := strings.Split(strings.TrimRight(body, "\f"), "\f")

	var b strings.Builder
	b.Grow(len(body) + len(pages))
	for _, page := range pages {
		b.WriteString(page)
		b.WriteByte('\n')
	}

	e.logger.Debug("pdf extracted", "pages", meta["Pages"], "chars", b.Len())
	return b.String(), nil
}

func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", core.ErrExtraction)
	}
	return string(data), nil
}

// ResolveFileType maps a declared MIME type to a supported type, falling back
// to the filename extension. It returns "" for unsupported documents.
func ResolveFileType(contentType, filename string) string {
	mt := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case mt == MimePDF:
		return MimePDF
	case mt == MimePlainText:
		return MimePlainText
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return MimePDF
	case ".txt":
		return MimePlainText
	}
	return ""
}
