package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
)

// DefaultTimeout bounds a single call to the external model.
const DefaultTimeout = 30 * time.Second

// Options configures an Engine.
//
// Provider:     external model; nil puts the engine in degraded mode.
// Model:        identifier reported in logs and metadata.
// Dimension:    expected vector length; also the zero-vector length in degraded mode.
// Timeout:      per-call deadline; DefaultTimeout when zero.
// CacheEntries: cache capacity in vectors; zero disables caching.
// Counters:     process-wide counters updated on every normal-mode call.
type Options struct {
	Provider     core.EmbeddingProvider
	Model        string
	Dimension    int
	Timeout      time.Duration
	CacheEntries int
	Counters     *core.ServiceCounters
}

type cachedVector struct {
	text   string
	vector []float32
}

// Engine turns chunk and query text into fixed-dimension vectors, serving
// repeats from an in-memory cache keyed by a hash of the normalized text.
type Engine struct {
	provider  core.EmbeddingProvider
	model     string
	dimension int
	timeout   time.Duration
	cache     *ristretto.Cache[uint64, cachedVector]
	counters  *core.ServiceCounters
	logger    *slog.Logger
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive, got %d", core.ErrConfiguration, opts.Dimension)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	e := &Engine{
		provider:  opts.Provider,
		model:     opts.Model,
		dimension: opts.Dimension,
		timeout:   opts.Timeout,
		counters:  opts.Counters,
		logger:    slog.Default().With("component", "embedding_engine"),
	}

	if opts.CacheEntries > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[uint64, cachedVector]{
			NumCounters:        int64(opts.CacheEntries) * 10,
			MaxCost:            int64(opts.CacheEntries),
			BufferItems:        64,
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: embedding cache: %w", core.ErrConfiguration, err)
		}
		e.cache = cache
	}

	if e.provider == nil {
		e.logger.Warn("no embedding credential configured, running in degraded mode", "dimension", e.dimension)
	}
	return e, nil
}

// Degraded reports whether the engine returns zero vectors instead of calling a model.
func (e *Engine) Degraded() bool { return e.provider == nil }

// CacheHitRate is cacheHits / totalEmbeddingRequests, or 0 before the first request.
func (e *Engine) CacheHitRate() float64 { return e.counters.CacheHitRate() }

// GenerateEmbedding returns the vector for text.
//
// In degraded mode it returns a zero vector of the configured dimension and
// touches no counters. Otherwise every call counts as a request; cache hits
// also count as hits and never reach the model. Model failures wrap
// core.ErrEmbeddingGeneration, a missed deadline wraps core.ErrEmbeddingTimeout,
// and a vector of the wrong length is a generation error.
func (e *Engine) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if e.provider == nil {
		e.logger.Warn("embedding model not configured, returning zero vector", "dimension", e.dimension)
		return make([]float32, e.dimension), nil
	}

	e.counters.AddEmbeddingRequest()

	key := normalize(text)
	if vec, ok := e.lookup(key); ok {
		e.counters.AddCacheHit()
		return vec, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	vec, err := e.provider.EmbedText(callCtx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			e.logger.Error("embedding call timed out", "model", e.model, "timeout", e.timeout)
			return nil, fmt.Errorf("%w: after %s: %w", core.ErrEmbeddingTimeout, e.timeout, err)
		}
		e.logger.Error("embedding call failed", "model", e.model, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingGeneration, err)
	}
	if len(vec) != e.dimension {
		return nil, fmt.Errorf("%w: model %s returned %d dimensions, expected %d",
			core.ErrEmbeddingGeneration, e.model, len(vec), e.dimension)
	}

	e.logger.Debug("embedding generated", "chars", len(text), "took", time.Since(start))
	e.store(key, vec)
	return vec, nil
}

// Close releases the cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

func (e *Engine) lookup(key string) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}
	entry, ok := e.cache.Get(xxhash.Sum64String(key))
	// A fingerprint collision must not serve another text's vector.
	if !ok || entry.text != key {
		return nil, false
	}
	return append([]float32(nil), entry.vector...), true
}

func (e *Engine) store(key string, vec []float32) {
	if e.cache == nil {
		return
	}
	entry := cachedVector{text: key, vector: append([]float32(nil), vec...)}
	if e.cache.Set(xxhash.Sum64String(key), entry, 1) {
		e.cache.Wait()
	}
}

// normalize collapses whitespace runs so formatting-only differences share a cache entry.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
