package handlers

import (
	"net/http"
	"time"

	"github.com/markdave123-py/knowledge-assistant/internal/api"
	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

const (
	ServiceName    = "knowledge-assistant"
	ServiceVersion = "1.0.0"
)

// MetricsSource exposes the pipeline counters.
type MetricsSource interface {
	Metrics() models.MetricsSnapshot
}

type HealthHandler struct {
	metrics             MetricsSource
	embeddingConfigured bool
	now                 func() time.Time
}

func NewHealthHandler(metrics MetricsSource, embeddingConfigured bool) *HealthHandler {
	return &HealthHandler{metrics: metrics, embeddingConfigured: embeddingConfigured, now: time.Now}
}

type healthResponse struct {
	Status              string `json:"status"`
	Service             string `json:"service"`
	Timestamp           string `json:"timestamp"`
	Version             string `json:"version"`
	EmbeddingConfigured bool   `json:"embeddingConfigured"`
}

type metricsResponse struct {
	Service   string                 `json:"service"`
	Metrics   models.MetricsSnapshot `json:"metrics"`
	Timestamp string                 `json:"timestamp"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, healthResponse{
		Status:              "healthy",
		Service:             ServiceName,
		Timestamp:           h.now().UTC().Format(time.RFC3339),
		Version:             ServiceVersion,
		EmbeddingConfigured: h.embeddingConfigured,
	})
}

func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, metricsResponse{
		Service:   ServiceName,
		Metrics:   h.metrics.Metrics(),
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}
