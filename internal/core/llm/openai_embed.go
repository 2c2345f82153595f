package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
)

// OpenAIEmbedder implements core.EmbeddingProvider against the OpenAI
// embeddings API or any OpenAI-compatible host.
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// NewOpenAIEmbedder builds an embedder for modelName. baseURL may be empty
// to use the public API.
func NewOpenAIEmbedder(apiKey, modelName, baseURL string) (*OpenAIEmbedder, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(modelName),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}

	return &OpenAIEmbedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding", "length", len(text))

	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	return vec, nil
}

var _ core.EmbeddingProvider = (*OpenAIEmbedder)(nil)
