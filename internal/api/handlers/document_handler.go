package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/markdave123-py/knowledge-assistant/internal/api"
	"github.com/markdave123-py/knowledge-assistant/internal/core"
	"github.com/markdave123-py/knowledge-assistant/internal/core/ingestion_engine"
	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

const (
	maxIngestBody   = 1 << 20
	maxUploadMemory = 32 << 20
)

// IngestService runs document ingestion synchronously or on a queue.
type IngestService interface {
	Ingest(ctx context.Context, req models.IngestRequest) (*models.IngestResult, error)
	Enqueue(req models.IngestRequest) (*models.IngestResult, error)
}

// DocumentStore manages stored documents and uploaded sources.
type DocumentStore interface {
	UploadsEnabled() bool
	Upload(ctx context.Context, documentID, filename, contentType string, data io.Reader) (string, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context) ([]models.Document, error)
	Chunks(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
	Delete(ctx context.Context, id string) error
}

type DocumentHandler struct {
	ingestor IngestService
	docs     DocumentStore
	validate *validator.Validate
}

func NewDocumentHandler(ingestor IngestService, docs DocumentStore) *DocumentHandler {
	return &DocumentHandler{ingestor: ingestor, docs: docs, validate: validator.New()}
}

// Ingest handles POST /internal/documents for a file the caller already placed
// on disk or in S3. ?async=true queues the work.
func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody)).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeBadRequest, "invalid request body", nil)
		return
	}
	if details := h.validationErrors(&req); details != nil {
		api.WriteError(w, http.StatusBadRequest, core.KindValidation, "invalid ingestion request", details)
		return
	}
	h.run(w, r, req)
}

// UploadDocument handles multipart upload: the file goes to object storage
// and is then ingested from there.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if !h.docs.UploadsEnabled() {
		api.WriteError(w, http.StatusServiceUnavailable, api.CodeUnavailable, "object storage not configured", nil)
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeBadRequest, "invalid multipart form", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeBadRequest, "invalid file", nil)
		return
	}
	defer file.Close()

	// Sanitize filename to prevent path traversal or invalid characters
	filename := filepath.Base(header.Filename)
	contentType := header.Header.Get("Content-Type")
	fileType := ingestion_engine.ResolveFileType(contentType, filename)
	if fileType == "" {
		fileType = contentType
	}

	documentID := r.FormValue("documentId")
	if documentID == "" {
		documentID = uuid.NewString()
	}

	req := models.IngestRequest{
		DocumentID:     documentID,
		FileName:       filename,
		FilePath:       "pending-upload",
		FileType:       fileType,
		Classification: r.FormValue("classification"),
		Department:     r.FormValue("department"),
	}
	if details := h.validationErrors(&req); details != nil {
		api.WriteError(w, http.StatusBadRequest, core.KindValidation, "invalid upload request", details)
		return
	}

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	uri, err := h.docs.Upload(uploadCtx, documentID, filename, fileType, file)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	req.FilePath = uri

	h.run(w, r, req)
}

func (h *DocumentHandler) run(w http.ResponseWriter, r *http.Request, req models.IngestRequest) {
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		res, err := h.ingestor.Enqueue(req)
		if err != nil {
			api.WriteErr(w, err)
			return
		}
		api.WriteJSON(w, http.StatusAccepted, res)
		return
	}

	res, err := h.ingestor.Ingest(r.Context(), req)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := h.docs.List(r.Context())
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"documents": documents,
		"count":     len(documents),
	})
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) GetChunks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	chunks, err := h.docs.Chunks(r.Context(), id)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"documentId": id,
		"chunks":     chunks,
	})
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		api.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) validationErrors(req *models.IngestRequest) map[string]string {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"request": err.Error()}
	}
	details := make(map[string]string, len(errs))
	for _, e := range errs {
		details[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
	}
	return details
}
