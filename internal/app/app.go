// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/markdave123-py/knowledge-assistant/internal/config"
	"github.com/markdave123-py/knowledge-assistant/internal/core"
	db "github.com/markdave123-py/knowledge-assistant/internal/core/database"
	"github.com/markdave123-py/knowledge-assistant/internal/core/embedding"
	"github.com/markdave123-py/knowledge-assistant/internal/core/guard"
	"github.com/markdave123-py/knowledge-assistant/internal/core/ingestion_engine"
	"github.com/markdave123-py/knowledge-assistant/internal/core/llm"
	objectclient "github.com/markdave123-py/knowledge-assistant/internal/core/object-client"
	"github.com/markdave123-py/knowledge-assistant/internal/core/retrieval"
	"github.com/markdave123-py/knowledge-assistant/internal/services"
)

type App struct {
	Store       core.ChunkStore
	Embeddings  *embedding.Engine
	Coordinator *services.Coordinator
	Server      *Server

	closers []func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{}
	counters := core.NewServiceCounters()

	store, err := db.NewChunkStore(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)
	log.Printf("Chunk store (%s) initialized and ready.", cfg.StoreBackend)

	var objects core.ObjectClient
	bucket := ""
	if cfg.ObjectStorageConfigured() {
		s3Client, err := objectclient.NewS3Client(appCtx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		objects, bucket = s3Client, s3Client.Bucket()
		log.Println("Object client initialized and ready.")
	} else {
		log.Println("Object storage not configured; uploads disabled.")
	}

	provider, err := a.embeddingProvider(appCtx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	engine, err := embedding.NewEngine(embedding.Options{
		Provider:     provider,
		Model:        cfg.EmbedModel,
		Dimension:    cfg.EmbedDim,
		Timeout:      cfg.EmbedTimeout,
		CacheEntries: cfg.EmbedCacheSize,
		Counters:     counters,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Embeddings = engine

	chunker, err := ingestion_engine.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, counters)
	if err != nil {
		a.Close()
		return nil, err
	}

	filter, err := guard.NewFilter()
	if err != nil {
		a.Close()
		return nil, err
	}

	var answerer *retrieval.Answerer
	if cfg.GenerationConfigured() {
		gemini, err := llm.NewGeminiLLM(appCtx, cfg.GenAPIKey, cfg.GenModel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("couldn't initialize the llm, %w", err)
		}
		a.closers = append(a.closers, gemini.Close)
		answerer = retrieval.NewAnswerer(store, gemini, gemini.ModelName(), cfg.RetrievalTopK)
	} else {
		log.Println("Generation not configured; answering with retrieved excerpts only.")
		answerer = retrieval.NewAnswerer(store, nil, "", cfg.RetrievalTopK)
	}

	coordinator, err := services.NewCoordinator(services.Components{
		Extractor: ingestion_engine.NewDocconvExtractor(),
		Chunker:   chunker,
		Filter:    filter,
		Embedder:  engine,
		Store:     store,
		Answerer:  answerer,
		Sources:   services.NewSourceReader(objects),
		Counters:  counters,
	},
		services.WithEmbedConcurrency(cfg.EmbedConcurrency),
		services.WithIngestWorkers(cfg.IngestWorkers),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Coordinator = coordinator

	documents := services.NewDocumentService(store, objects, bucket)
	a.Server = NewServer(cfg, coordinator, documents, !engine.Degraded())

	return a, nil
}

// embeddingProvider returns nil when no credential is configured, which runs
// the engine in degraded mode.
func (a *App) embeddingProvider(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, error) {
	if !cfg.EmbeddingConfigured() {
		log.Println("WARN: no embedding credential; vectors will be zero and search meaningless.")
		return nil, nil
	}

	var provider core.EmbeddingProvider
	switch cfg.EmbedProvider {
	case "gemini":
		gemini, err := llm.NewGeminiEmbedder(ctx, cfg.EmbedAPIKey, cfg.EmbedModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
		}
		a.closers = append(a.closers, gemini.Close)
		provider = gemini
	default:
		openai, err := llm.NewOpenAIEmbedder(cfg.EmbedAPIKey, cfg.EmbedModel, cfg.EmbedBaseURL)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
		}
		provider = openai
	}
	log.Printf("Embedding provider %s (%s) initialized.", cfg.EmbedProvider, cfg.EmbedModel)

	return llm.WithRetry(provider, cfg.EmbedMaxRetries, llm.DefaultRetryDelay), nil
}

// Close drains queued ingestions and releases clients in reverse order.
func (a *App) Close() {
	if a.Coordinator != nil {
		a.Coordinator.Release()
	}
	if a.Embeddings != nil {
		a.Embeddings.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("close: %v", err)
		}
	}
	a.closers = nil
}
