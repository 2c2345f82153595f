package ingestion_engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

// NewChunker validates the window geometry. An overlap >= size would never
// advance the window, so it is rejected before any text is processed.
func NewChunker(size, overlap int, counters *core.ServiceCounters) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", core.ErrConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", core.ErrConfiguration, overlap, size)
	}
	return &Chunker{
		size:     size,
		overlap:  overlap,
		counters: counters,
		logger:   slog.Default().With("component", "chunker"),
	}, nil
}

// Chunk splits text into windows starting at 0, size-overlap, 2*(size-overlap), ...
// and stops after the first window that reaches the end of the text, so no
// chunk is a pure suffix of its predecessor. Text no longer than overlap
// still yields a single chunk.
//
// Each chunk's content is its window with surrounding whitespace trimmed; the
// token estimate uses the untrimmed window length. The final window may be
// shorter than size. Output depends only on the input text and geometry.
func (c *Chunker) Chunk(text string) []models.DocumentChunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]models.DocumentChunk, 0, len(runes)/step+1)

	for start, index := 0, 0; start < len(runes); start, index = start+step, index+1 {
		end := min(start+c.size, len(runes))
		window := runes[start:end]

		chunks = append(chunks, models.DocumentChunk{
			ChunkIndex: index,
			Content:    strings.TrimSpace(string(window)),
			TokenCount: approxTokens(len(window)),
		})
		if end == len(runes) {
			break
		}
	}

	c.counters.AddChunksCreated(int64(len(chunks)))
	c.logger.Debug("created chunks", "chunks", len(chunks), "chars", len(runes))

	return chunks
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token), rounding down.
func approxTokens(chars int) int {
	return chars / charsPerToken
}
