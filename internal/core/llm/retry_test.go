package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyEmbedder struct {
	failures int
	err      error
	calls    int
}

func (f *flakyEmbedder) EmbedText(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []float32{1, 2, 3}, nil
}

func TestWithRetry_ZeroRetriesReturnsProvider(t *testing.T) {
	p := &flakyEmbedder{}
	assert.Same(t, p, WithRetry(p, 0, time.Millisecond))
}

func TestWithRetry_RecoversAfterFailures(t *testing.T) {
	p := &flakyEmbedder{failures: 2, err: errors.New("503")}
	r := WithRetry(p, 2, time.Millisecond)

	vec, err := r.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.Equal(t, 3, p.calls)
}

func TestWithRetry_GivesUp(t *testing.T) {
	cause := errors.New("503")
	p := &flakyEmbedder{failures: 10, err: cause}
	r := WithRetry(p, 2, time.Millisecond)

	_, err := r.EmbedText(context.Background(), "hello")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, p.calls)
}

func TestWithRetry_DoesNotRetryDeadline(t *testing.T) {
	p := &flakyEmbedder{failures: 10, err: context.DeadlineExceeded}
	r := WithRetry(p, 5, time.Millisecond)

	_, err := r.EmbedText(context.Background(), "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, p.calls)
}
