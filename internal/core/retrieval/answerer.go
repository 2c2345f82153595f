package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

const (
	// DefaultTopK is the number of chunks retrieved per query.
	DefaultTopK = 5
	// RetrievalOnlyModel is reported when no generative model is configured.
	RetrievalOnlyModel = "retrieval-only"
	// maxExcerptRunes caps the excerpt attached to each source.
	maxExcerptRunes = 200
)

const systemPrompt = "You are a knowledge assistant for internal company documents. " +
	"Answer only from the numbered context passages. Cite passages as [n]. " +
	"If the context does not contain the answer, say 'I cannot find this in the knowledge base.'"

const (
	noContextAnswer   = "I cannot find this in the knowledge base."
	unavailableAnswer = "Answer generation is unavailable. The most relevant passages are listed in sources."
)

// Answerer retrieves the chunks closest to the query vector and asks the
// generative model to answer from them.
type Answerer struct {
	store        core.ChunkStore
	llm          core.LLMProvider
	modelVersion string
	topK         int
	logger       *slog.Logger
}

var _ core.Answerer = (*Answerer)(nil)

// NewAnswerer builds an answerer. A nil llm yields retrieval-only answers.
func NewAnswerer(store core.ChunkStore, llm core.LLMProvider, modelVersion string, topK int) *Answerer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if llm == nil || modelVersion == "" {
		modelVersion = RetrievalOnlyModel
	}
	return &Answerer{
		store:        store,
		llm:          llm,
		modelVersion: modelVersion,
		topK:         topK,
		logger:       slog.Default().With("component", "answerer"),
	}
}

func (a *Answerer) Answer(ctx context.Context, req core.AnswerRequest) (*models.Answer, error) {
	chunks, err := a.store.SearchChunks(ctx, req.QueryVector, req.UserContext, a.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search chunks: %w", core.ErrInternal, err)
	}

	answer := &models.Answer{
		Sources:      BuildSources(chunks),
		ModelVersion: a.modelVersion,
	}
	answer.Confidence = Confidence(answer.Sources)

	switch {
	case len(chunks) == 0:
		answer.Text = noContextAnswer
		return answer, nil
	case a.llm == nil:
		answer.Text = unavailableAnswer
		return answer, nil
	}

	gen, err := a.llm.Generate(ctx, systemPrompt, BuildPrompt(req.Query, chunks))
	if err != nil {
		a.logger.Error("generation failed", "model", a.modelVersion, "err", err)
		return nil, fmt.Errorf("%w: generate answer: %w", core.ErrInternal, err)
	}

	answer.Text = strings.TrimSpace(gen.Text)
	if answer.Text == "" {
		answer.Text = noContextAnswer
	}
	answer.TokensUsed = gen.TokensUsed

	a.logger.Debug("answer generated", "sources", len(answer.Sources), "tokens", gen.TokensUsed)
	return answer, nil
}

// BuildPrompt numbers each chunk so the model can cite it.
func BuildPrompt(query string, chunks []models.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for i, ch := range chunks {
		fmt.Fprintf(&sb, "[%d] (%s)\n%s\n---\n", i+1, ch.DocumentName, ch.Content)
	}
	fmt.Fprintf(&sb, "\nQuestion: %s", query)
	return sb.String()
}

// BuildSources converts search hits to citations, in search order.
func BuildSources(chunks []models.ScoredChunk) []models.SourceDocument {
	sources := make([]models.SourceDocument, 0, len(chunks))
	for _, ch := range chunks {
		sources = append(sources, models.SourceDocument{
			DocumentID:     ch.DocumentID,
			DocumentName:   ch.DocumentName,
			RelevanceScore: ch.RelevanceScore,
			Excerpt:        excerpt(ch.Content, maxExcerptRunes),
		})
	}
	return sources
}

// Confidence is the mean relevance of the sources clipped to [0,1].
func Confidence(sources []models.SourceDocument) float64 {
	if len(sources) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sources {
		sum += s.RelevanceScore
	}
	return min(max(sum/float64(len(sources)), 0), 1)
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
