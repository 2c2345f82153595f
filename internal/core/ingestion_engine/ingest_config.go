package ingestion_engine

import (
	"io"
	"log/slog"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
)

const (
	// DefaultChunkSize is the window length in characters.
	DefaultChunkSize = 400
	// DefaultChunkOverlap is the number of characters shared by consecutive windows.
	DefaultChunkOverlap = 50
	// charsPerToken backs the token estimate (~4 chars ≈ 1 token).
	charsPerToken = 4
)

// Supported MIME types.
const (
	MimePDF       = "application/pdf"
	MimePlainText = "text/plain"
)

// Chunker splits extracted text into overlapping fixed-size windows.
//
// size:     window length in characters (runes).
// overlap:  characters shared by window i and i+1; always < size.
// counters: process-wide counters; chunksCreated grows by every emitted chunk.
type Chunker struct {
	size     int
	overlap  int
	counters *core.ServiceCounters
	logger   *slog.Logger
}

// pdfConverter turns a PDF stream into text; docconv.ConvertPDF in production.
type pdfConverter func(r io.Reader) (string, map[string]string, error)

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv for PDF
// and a verbatim UTF-8 read for plain text.
type DocconvExtractor struct {
	convertPDF pdfConverter
	logger     *slog.Logger
}
