package core

import (
	"context"

	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

// EmbeddingProvider is an external embedding model.
type EmbeddingProvider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// LLMProvider is an external generative model.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (Generation, error)
}

// Generation is a completion plus its token usage.
type Generation struct {
	Text       string
	TokensUsed int
}

// AnswerRequest is what the coordinator hands to retrieval+generation.
type AnswerRequest struct {
	Query       string
	QueryVector []float32
	UserContext *models.UserContext
}

// Answerer performs retrieval and answer generation for an approved, embedded query.
type Answerer interface {
	Answer(ctx context.Context, req AnswerRequest) (*models.Answer, error)
}
