package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

type fakeStore struct {
	core.ChunkStore
	hits  []models.ScoredChunk
	err   error
	limit int
	user  *models.UserContext
}

func (f *fakeStore) SearchChunks(_ context.Context, _ []float32, user *models.UserContext, limit int) ([]models.ScoredChunk, error) {
	f.limit = limit
	f.user = user
	return f.hits, f.err
}

type fakeLLM struct {
	gen        core.Generation
	err        error
	userPrompt string
}

func (f *fakeLLM) Generate(_ context.Context, _ string, userPrompt string) (core.Generation, error) {
	f.userPrompt = userPrompt
	return f.gen, f.err
}

func hit(doc, name, content string, score float64) models.ScoredChunk {
	return models.ScoredChunk{
		DocumentChunk:  models.DocumentChunk{DocumentID: doc, Content: content},
		DocumentName:   name,
		RelevanceScore: score,
	}
}

func TestAnswer_GeneratesFromRetrievedChunks(t *testing.T) {
	store := &fakeStore{hits: []models.ScoredChunk{
		hit("d1", "refunds.pdf", "Enterprise refunds within 30 days.", 0.9),
		hit("d2", "terms.txt", "Refunds require a ticket.", 0.5),
	}}
	llm := &fakeLLM{gen: core.Generation{Text: " Within 30 days [1]. ", TokensUsed: 42}}
	user := &models.UserContext{UserID: "u1", Role: "employee"}

	a := NewAnswerer(store, llm, "gemini-1.5-flash", 3)
	ans, err := a.Answer(context.Background(), core.AnswerRequest{
		Query: "refund window?", QueryVector: []float32{1}, UserContext: user,
	})
	require.NoError(t, err)

	assert.Equal(t, "Within 30 days [1].", ans.Text)
	assert.Equal(t, 42, ans.TokensUsed)
	assert.Equal(t, "gemini-1.5-flash", ans.ModelVersion)
	assert.InDelta(t, 0.7, ans.Confidence, 1e-9)
	require.Len(t, ans.Sources, 2)
	assert.Equal(t, "d1", ans.Sources[0].DocumentID)
	assert.Equal(t, "refunds.pdf", ans.Sources[0].DocumentName)

	assert.Equal(t, 3, store.limit)
	assert.Same(t, user, store.user)
	assert.Contains(t, llm.userPrompt, "[1] (refunds.pdf)")
	assert.Contains(t, llm.userPrompt, "Question: refund window?")
}

func TestAnswer_NoChunksSkipsModel(t *testing.T) {
	llm := &fakeLLM{}
	a := NewAnswerer(&fakeStore{}, llm, "m", 0)

	ans, err := a.Answer(context.Background(), core.AnswerRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, noContextAnswer, ans.Text)
	assert.Empty(t, ans.Sources)
	assert.NotNil(t, ans.Sources)
	assert.Zero(t, ans.Confidence)
	assert.Empty(t, llm.userPrompt)
}

func TestAnswer_RetrievalOnly(t *testing.T) {
	store := &fakeStore{hits: []models.ScoredChunk{hit("d1", "a.txt", "text", 0.4)}}
	a := NewAnswerer(store, nil, "gemini-1.5-flash", 5)

	ans, err := a.Answer(context.Background(), core.AnswerRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, RetrievalOnlyModel, ans.ModelVersion)
	assert.Equal(t, unavailableAnswer, ans.Text)
	assert.Len(t, ans.Sources, 1)
}

func TestAnswer_Failures(t *testing.T) {
	_, err := NewAnswerer(&fakeStore{err: errors.New("db down")}, nil, "", 5).
		Answer(context.Background(), core.AnswerRequest{})
	assert.ErrorIs(t, err, core.ErrInternal)

	store := &fakeStore{hits: []models.ScoredChunk{hit("d1", "a.txt", "text", 0.4)}}
	_, err = NewAnswerer(store, &fakeLLM{err: errors.New("quota")}, "m", 5).
		Answer(context.Background(), core.AnswerRequest{})
	assert.ErrorIs(t, err, core.ErrInternal)
}

func TestConfidence_Clipped(t *testing.T) {
	assert.Zero(t, Confidence(nil))
	assert.Equal(t, 1.0, Confidence([]models.SourceDocument{{RelevanceScore: 1.4}}))
	assert.Equal(t, 0.0, Confidence([]models.SourceDocument{{RelevanceScore: -0.2}}))
}

func TestBuildSources_TruncatesExcerpt(t *testing.T) {
	long := strings.Repeat("ü", 250)
	sources := BuildSources([]models.ScoredChunk{hit("d", "n", long, 0.1)})
	require.Len(t, sources, 1)
	assert.Equal(t, strings.Repeat("ü", 200)+"...", sources[0].Excerpt)
}
