package core

import (
	"sync/atomic"

	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

// ServiceCounters is the process-wide pipeline state read by the metrics surface.
//
// All counters start at zero, only ever increase, and are never persisted:
// a restart resets them. In a multi-instance deployment every instance
// reports its own counters.
//
// documentsProcessed:     completed ingestions (Coordinator).
// chunksCreated:          chunks emitted by the Chunker.
// totalEmbeddingRequests: embedding calls in normal mode, cache hits included.
// cacheHits:              embedding calls served from the cache.
type ServiceCounters struct {
	documentsProcessed     atomic.Int64
	chunksCreated          atomic.Int64
	totalEmbeddingRequests atomic.Int64
	cacheHits              atomic.Int64
}

func NewServiceCounters() *ServiceCounters {
	return &ServiceCounters{}
}

// The increment methods are nil-safe so components can run without counters.

func (c *ServiceCounters) AddDocumentsProcessed(n int64) {
	if c != nil && n > 0 {
		c.documentsProcessed.Add(n)
	}
}

func (c *ServiceCounters) AddChunksCreated(n int64) {
	if c != nil && n > 0 {
		c.chunksCreated.Add(n)
	}
}

func (c *ServiceCounters) AddEmbeddingRequest() {
	if c != nil {
		c.totalEmbeddingRequests.Add(1)
	}
}

func (c *ServiceCounters) AddCacheHit() {
	if c != nil {
		c.cacheHits.Add(1)
	}
}

func (c *ServiceCounters) DocumentsProcessed() int64 {
	if c == nil {
		return 0
	}
	return c.documentsProcessed.Load()
}

func (c *ServiceCounters) ChunksCreated() int64 {
	if c == nil {
		return 0
	}
	return c.chunksCreated.Load()
}

func (c *ServiceCounters) TotalEmbeddingRequests() int64 {
	if c == nil {
		return 0
	}
	return c.totalEmbeddingRequests.Load()
}

func (c *ServiceCounters) CacheHits() int64 {
	if c == nil {
		return 0
	}
	return c.cacheHits.Load()
}

// CacheHitRate is cacheHits / totalEmbeddingRequests, 0 when nothing was requested.
func (c *ServiceCounters) CacheHitRate() float64 {
	total := c.TotalEmbeddingRequests()
	if total == 0 {
		return 0
	}
	// The two loads are not atomic together; a hit may land in between.
	rate := float64(c.CacheHits()) / float64(total)
	if rate > 1 {
		rate = 1
	}
	return rate
}

// Snapshot reads all counters.
func (c *ServiceCounters) Snapshot() models.MetricsSnapshot {
	return models.MetricsSnapshot{
		DocumentsProcessed:     c.DocumentsProcessed(),
		ChunksCreated:          c.ChunksCreated(),
		TotalEmbeddingRequests: c.TotalEmbeddingRequests(),
		CacheHits:              c.CacheHits(),
		CacheHitRate:           c.CacheHitRate(),
	}
}
