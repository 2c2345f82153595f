package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/knowledge-assistant/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/knowledge-assistant/internal/api/middlewares"
	"github.com/markdave123-py/knowledge-assistant/internal/config"
	"github.com/markdave123-py/knowledge-assistant/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, coordinator *services.Coordinator, documents *services.DocumentService, embeddingConfigured bool) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, coordinator, coordinator, documents, coordinator, embeddingConfigured),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// NewRouter mounts the public health routes and the service-token protected
// internal API.
func NewRouter(cfg *config.Config, queries handlers.QueryService, ingestor handlers.IngestService, documents handlers.DocumentStore, metrics handlers.MetricsSource, embeddingConfigured bool) http.Handler {
	healthHandler := handlers.NewHealthHandler(metrics, embeddingConfigured)
	chatHandler := handlers.NewChatHandler(queries)
	docHandler := handlers.NewDocumentHandler(ingestor, documents)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/metrics", healthHandler.Metrics)

	// gateway-only endpoints
	r.Route("/internal", func(internal chi.Router) {
		internal.Use(appMiddleware.ServiceTokenMiddleware(cfg.ServiceSecret))
		internal.Post("/query", chatHandler.Query)
		internal.Post("/documents", docHandler.Ingest)
		internal.Post("/documents/upload", docHandler.UploadDocument)
		internal.Get("/documents", docHandler.GetDocuments)
		internal.Get("/documents/{id}", docHandler.GetDocument)
		internal.Get("/documents/{id}/chunks", docHandler.GetChunks)
		internal.Delete("/documents/{id}", docHandler.DeleteDocument)
	})

	return r
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
