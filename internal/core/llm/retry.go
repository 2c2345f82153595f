package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
)

// DefaultRetryDelay is the first backoff step; it doubles on each retry.
const DefaultRetryDelay = 500 * time.Millisecond

// RetryingEmbedder retries a provider with exponential backoff. Context
// cancellation and deadline errors are returned without retrying.
type RetryingEmbedder struct {
	next        core.EmbeddingProvider
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// WithRetry wraps p so each call makes at most 1+retries attempts.
// retries <= 0 returns p unchanged.
func WithRetry(p core.EmbeddingProvider, retries int, baseDelay time.Duration) core.EmbeddingProvider {
	if retries <= 0 {
		return p
	}
	if baseDelay <= 0 {
		baseDelay = DefaultRetryDelay
	}
	return &RetryingEmbedder{
		next:        p,
		maxAttempts: retries + 1,
		baseDelay:   baseDelay,
		logger:      slog.Default().With("component", "embed-retry"),
	}
}

func (r *RetryingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	delay := r.baseDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		vec, err := r.next.EmbedText(ctx, text)
		if err == nil {
			if attempt > 1 {
				r.logger.Debug("embedding succeeded after retry", "attempt", attempt)
			}
			return vec, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if attempt == r.maxAttempts {
			break
		}

		r.logger.Debug("embedding failed, will retry", "attempt", attempt, "maxAttempts", r.maxAttempts, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return nil, lastErr
}

var _ core.EmbeddingProvider = (*RetryingEmbedder)(nil)
