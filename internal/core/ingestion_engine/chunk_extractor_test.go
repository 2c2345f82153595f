package ingestion_engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
)

// lettersText returns n characters without whitespace so trimming never alters a window.
func lettersText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	return b.String()
}

func expectedChunkCount(l, size, overlap int) int {
	if l == 0 {
		return 0
	}
	n := max(l-overlap, 0)
	// A text shorter than the overlap still produces one chunk.
	return max((n+(size-overlap)-1)/(size-overlap), 1)
}

func TestNewChunker_RejectsBadGeometry(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 400, 400},
		{"overlap exceeds size", 100, 150},
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewChunker(tt.size, tt.overlap, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.Nil(t, c)
		})
	}
}

func TestChunk_EmptyText(t *testing.T) {
	counters := core.NewServiceCounters()
	c, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap, counters)
	require.NoError(t, err)

	assert.Empty(t, c.Chunk(""))
	assert.Equal(t, int64(0), counters.ChunksCreated())
}

func TestChunk_ThousandCharacters(t *testing.T) {
	text := lettersText(1000)
	c, err := NewChunker(400, 50, nil)
	require.NoError(t, err)

	chunks := c.Chunk(text)
	require.Len(t, chunks, 3)

	assert.Equal(t, text[0:400], chunks[0].Content)
	assert.Equal(t, text[350:750], chunks[1].Content)
	assert.Equal(t, text[700:1000], chunks[2].Content)

	assert.Equal(t, 100, chunks[0].TokenCount)
	assert.Equal(t, 100, chunks[1].TokenCount)
	assert.Equal(t, 75, chunks[2].TokenCount)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
	}
}

func TestChunk_CountFormula(t *testing.T) {
	geometries := []struct{ size, overlap int }{
		{400, 50}, {10, 0}, {10, 9}, {7, 3}, {1, 0},
	}
	for _, g := range geometries {
		c, err := NewChunker(g.size, g.overlap, nil)
		require.NoError(t, err)
		for _, l := range []int{0, 1, 5, 9, 10, 11, 49, 50, 51, 399, 400, 401, 1000, 1234} {
			got := len(c.Chunk(lettersText(l)))
			assert.Equal(t, expectedChunkCount(l, g.size, g.overlap), got,
				"L=%d C=%d O=%d", l, g.size, g.overlap)
		}
	}
}

func TestChunk_Reconstruction(t *testing.T) {
	text := lettersText(1234)
	for _, g := range []struct{ size, overlap int }{{400, 50}, {100, 0}, {64, 63}, {17, 5}} {
		c, err := NewChunker(g.size, g.overlap, nil)
		require.NoError(t, err)

		chunks := c.Chunk(text)
		var b strings.Builder
		for i, ch := range chunks {
			if i == 0 {
				b.WriteString(ch.Content)
				continue
			}
			b.WriteString(ch.Content[min(g.overlap, len(ch.Content)):])
		}
		assert.Equal(t, text, b.String(), "C=%d O=%d", g.size, g.overlap)
	}
}

func TestChunk_TrimsContentButCountsRawWindow(t *testing.T) {
	c, err := NewChunker(8, 0, nil)
	require.NoError(t, err)

	chunks := c.Chunk("  hello  world   ")
	require.Len(t, chunks, 3)
	assert.Equal(t, "hello", chunks[0].Content)
	assert.Equal(t, 2, chunks[0].TokenCount)
	assert.Equal(t, "world", chunks[1].Content)
	assert.Equal(t, "", chunks[2].Content)
	assert.Equal(t, 0, chunks[2].TokenCount)

	exact, err := NewChunker(400, 50, nil)
	require.NoError(t, err)
	assert.Len(t, exact.Chunk(lettersText(400)), 1)
}

func TestChunk_CountsCharactersNotBytes(t *testing.T) {
	c, err := NewChunker(4, 0, nil)
	require.NoError(t, err)

	chunks := c.Chunk("héllo wörld")
	require.Len(t, chunks, 3)
	assert.Equal(t, "héll", chunks[0].Content)
	assert.Equal(t, "o wö", chunks[1].Content)
	assert.Equal(t, "rld", chunks[2].Content)
}

func TestChunk_IsDeterministicAndCounts(t *testing.T) {
	counters := core.NewServiceCounters()
	c, err := NewChunker(400, 50, counters)
	require.NoError(t, err)

	text := lettersText(1000)
	first := c.Chunk(text)
	second := c.Chunk(text)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(6), counters.ChunksCreated())
}
