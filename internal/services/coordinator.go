package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

// Query length bounds, inclusive, in characters.
const (
	MinQueryLength = 3
	MaxQueryLength = 1000
)

// auditExcerptRunes is how much of a blocked query reaches the log.
const auditExcerptRunes = 50

// Ingestion statuses.
const (
	StatusProcessed = "processed"
	StatusQueued    = "queued"
)

// Chunker splits extracted text into chunk records.
type Chunker interface {
	Chunk(text string) []models.DocumentChunk
}

// InjectionFilter classifies a query; reason names the rule that blocked it.
type InjectionFilter interface {
	Check(query string) (reason string, blocked bool)
}

// Embedder turns text into a vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Coordinator owns the pipeline components and runs the ingestion and query
// flows. All components are constructed once and shared across requests.
type Coordinator struct {
	extractor core.DocumentExtractor
	chunker   Chunker
	filter    InjectionFilter
	embedder  Embedder
	store     core.ChunkStore
	answerer  core.Answerer
	sources   *SourceReader
	counters  *core.ServiceCounters

	embedConcurrency int
	ingestTimeout    time.Duration
	pool             *ants.Pool
	logger           *slog.Logger

	// mu guards closed and every inflight.Add, so Release never waits
	// while a new ingestion is being admitted.
	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithEmbedConcurrency bounds parallel embedding calls per document.
func WithEmbedConcurrency(n int) Option {
	return func(c *Coordinator) error {
		if n < 1 {
			n = 1
		}
		c.embedConcurrency = n
		return nil
	}
}

// WithIngestWorkers sets the size of the async ingestion pool.
func WithIngestWorkers(n int) Option {
	return func(c *Coordinator) error {
		if n < 1 {
			n = 1
		}
		if c.pool != nil {
			c.pool.Release()
		}
		pool, err := ants.NewPool(n, ants.WithNonblocking(true))
		if err != nil {
			return err
		}
		c.pool = pool
		return nil
	}
}

// WithIngestTimeout bounds a queued ingestion.
func WithIngestTimeout(d time.Duration) Option {
	return func(c *Coordinator) error {
		if d > 0 {
			c.ingestTimeout = d
		}
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger != nil {
			c.logger = logger.With("component", "coordinator")
		}
		return nil
	}
}

// Components are the collaborators a Coordinator orchestrates.
type Components struct {
	Extractor core.DocumentExtractor
	Chunker   Chunker
	Filter    InjectionFilter
	Embedder  Embedder
	Store     core.ChunkStore
	Answerer  core.Answerer
	Sources   *SourceReader
	Counters  *core.ServiceCounters
}

func NewCoordinator(comp Components, opts ...Option) (*Coordinator, error) {
	switch {
	case comp.Extractor == nil:
		return nil, fmt.Errorf("%w: extractor required", core.ErrConfiguration)
	case comp.Chunker == nil:
		return nil, fmt.Errorf("%w: chunker required", core.ErrConfiguration)
	case comp.Filter == nil:
		return nil, fmt.Errorf("%w: injection filter required", core.ErrConfiguration)
	case comp.Embedder == nil:
		return nil, fmt.Errorf("%w: embedder required", core.ErrConfiguration)
	case comp.Store == nil:
		return nil, fmt.Errorf("%w: chunk store required", core.ErrConfiguration)
	case comp.Answerer == nil:
		return nil, fmt.Errorf("%w: answerer required", core.ErrConfiguration)
	}
	if comp.Sources == nil {
		comp.Sources = NewSourceReader(nil)
	}
	if comp.Counters == nil {
		comp.Counters = core.NewServiceCounters()
	}

	c := &Coordinator{
		extractor:        comp.Extractor,
		chunker:          comp.Chunker,
		filter:           comp.Filter,
		embedder:         comp.Embedder,
		store:            comp.Store,
		answerer:         comp.Answerer,
		sources:          comp.Sources,
		counters:         comp.Counters,
		embedConcurrency: 4,
		ingestTimeout:    10 * time.Minute,
		logger:           slog.Default().With("component", "coordinator"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			c.Release()
			return nil, err
		}
	}

	if c.pool == nil {
		if err := WithIngestWorkers(max(runtime.NumCPU()/2, 1))(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Ingest extracts, chunks, and embeds one document, then hands the document
// and its chunk+vector pairs to the store in a single call. Nothing is
// stored when any step fails.
func (c *Coordinator) Ingest(ctx context.Context, req models.IngestRequest) (*models.IngestResult, error) {
	start := time.Now()
	if err := core.ValidateDocumentID(req.DocumentID); err != nil {
		return nil, err
	}
	logger := c.logger.With("documentId", req.DocumentID)

	data, err := c.sources.Read(ctx, req.FilePath)
	if err != nil {
		logger.Error("read source failed", "err", err)
		return nil, err
	}

	text, err := c.extractor.ExtractText(ctx, data, req.FileType, req.FileName)
	if err != nil {
		logger.Error("extraction failed", "fileType", req.FileType, "err", err)
		return nil, err
	}

	chunks := retrievable(c.chunker.Chunk(text))
	if err := c.embedChunks(ctx, chunks); err != nil {
		logger.Error("embedding chunks failed", "chunks", len(chunks), "err", err)
		return nil, err
	}

	now := time.Now().UTC()
	for i := range chunks {
		chunks[i].ID = uuid.NewString()
		chunks[i].DocumentID = req.DocumentID
		chunks[i].CreatedAt = now
	}

	classification := strings.ToLower(strings.TrimSpace(req.Classification))
	if classification == "" {
		classification = models.DefaultClassification
	}
	doc := &models.Document{
		ID:             req.DocumentID,
		FileName:       req.FileName,
		FileType:       req.FileType,
		Classification: classification,
		Department:     req.Department,
		StorageURL:     req.FilePath,
		CreatedAt:      now,
	}
	if err := c.store.SaveDocument(ctx, doc, chunks); err != nil {
		logger.Error("save document failed", "err", err)
		return nil, fmt.Errorf("%w: save document: %w", core.ErrInternal, err)
	}

	c.counters.AddDocumentsProcessed(1)
	logger.Info("document ingested", "chunks", len(chunks), "chars", len(text), "took", time.Since(start))

	return &models.IngestResult{
		DocumentID:    req.DocumentID,
		Status:        StatusProcessed,
		ChunksCreated: len(chunks),
		Message:       fmt.Sprintf("Document stored as %d chunks", len(chunks)),
	}, nil
}

// Enqueue runs Ingest on the worker pool and returns immediately.
// Failures of queued work are logged. After Release it fails with ErrInternal.
func (c *Coordinator) Enqueue(req models.IngestRequest) (*models.IngestResult, error) {
	if err := core.ValidateDocumentID(req.DocumentID); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: ingestion queue is shut down", core.ErrInternal)
	}
	c.inflight.Add(1)
	c.mu.Unlock()

	err := c.pool.Submit(func() {
		defer c.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.ingestTimeout)
		defer cancel()
		if _, err := c.Ingest(ctx, req); err != nil {
			c.logger.Error("queued ingestion failed", "documentId", req.DocumentID, "kind", core.ErrorKind(err), "err", err)
		}
	})
	if err != nil {
		c.inflight.Done()
		if errors.Is(err, ants.ErrPoolOverload) {
			return nil, fmt.Errorf("%w: ingestion queue is full", core.ErrInternal)
		}
		return nil, fmt.Errorf("%w: enqueue ingestion: %w", core.ErrInternal, err)
	}

	return &models.IngestResult{
		DocumentID: req.DocumentID,
		Status:     StatusQueued,
		Message:    "Document queued for processing",
	}, nil
}

// Release stops admitting queued ingestions, waits for the ones already
// admitted, and stops the worker pool. It is safe to call more than once.
func (c *Coordinator) Release() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.inflight.Wait()
	if c.pool != nil {
		c.pool.Release()
	}
}

// Query validates, filters, and embeds the query, then asks the answerer.
// Validation and filtering failures happen before any model call.
func (c *Coordinator) Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error) {
	if err := ValidateQuery(req.Query); err != nil {
		return nil, err
	}

	if reason, blocked := c.filter.Check(req.Query); blocked {
		c.logger.Warn("injection attempt blocked",
			"rule", reason,
			"userId", userID(req.UserContext),
			"excerpt", excerpt(req.Query, auditExcerptRunes))
		return nil, fmt.Errorf("%w: query rejected by %s rule", core.ErrInjectionDetected, reason)
	}

	vec, err := c.embedder.GenerateEmbedding(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	answer, err := c.answerer.Answer(ctx, core.AnswerRequest{
		Query:       req.Query,
		QueryVector: vec,
		UserContext: req.UserContext,
	})
	if err != nil {
		if core.ErrorKind(err) == core.KindInternal && !errors.Is(err, core.ErrInternal) {
			err = fmt.Errorf("%w: %w", core.ErrInternal, err)
		}
		return nil, err
	}
	if answer == nil || answer.ModelVersion == "" {
		return nil, fmt.Errorf("%w: answer is missing model version", core.ErrInternal)
	}

	sources := answer.Sources
	if sources == nil {
		sources = []models.SourceDocument{}
	}

	return &models.QueryResponse{
		QueryID:      uuid.NewString(),
		Answer:       answer.Text,
		Sources:      sources,
		Confidence:   answer.Confidence,
		TokensUsed:   answer.TokensUsed,
		ModelVersion: answer.ModelVersion,
	}, nil
}

// Metrics reads the process-wide counters.
func (c *Coordinator) Metrics() models.MetricsSnapshot {
	return c.counters.Snapshot()
}

// ValidateQuery enforces the inclusive character-length bounds.
func ValidateQuery(q string) error {
	n := utf8.RuneCountInString(q)
	if n < MinQueryLength || n > MaxQueryLength {
		return fmt.Errorf("%w: query must be between %d and %d characters, got %d",
			core.ErrValidation, MinQueryLength, MaxQueryLength, n)
	}
	return nil
}

// embedChunks fills each chunk's Embedding, preserving chunk order.
func (c *Coordinator) embedChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.embedConcurrency)

	for i := range chunks {
		g.Go(func() error {
			vec, err := c.embedder.GenerateEmbedding(gctx, chunks[i].Content)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", chunks[i].ChunkIndex, err)
			}
			chunks[i].Embedding = vec
			return nil
		})
	}
	return g.Wait()
}

// retrievable drops whitespace-only windows; they carry nothing to embed.
func retrievable(chunks []models.DocumentChunk) []models.DocumentChunk {
	out := chunks[:0]
	for _, ch := range chunks {
		if ch.Content != "" {
			out = append(out, ch)
		}
	}
	return out
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func userID(u *models.UserContext) string {
	if u == nil {
		return ""
	}
	return u.UserID
}
