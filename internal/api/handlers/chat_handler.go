package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/markdave123-py/knowledge-assistant/internal/api"
	middleware "github.com/markdave123-py/knowledge-assistant/internal/api/middlewares"
	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

const maxQueryBody = 1 << 20

// QueryService answers knowledge base queries.
type QueryService interface {
	Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error)
}

type ChatHandler struct {
	queries QueryService
}

func NewChatHandler(queries QueryService) *ChatHandler {
	return &ChatHandler{queries: queries}
}

// Query handles POST /internal/query. When a service token was presented its
// user context replaces the body's, even when the token carries none.
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBody)).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeBadRequest, "invalid request body", nil)
		return
	}
	if u, ok := middleware.UserContextFrom(r.Context()); ok {
		req.UserContext = u
	}

	resp, err := h.queries.Query(r.Context(), req)
	if err != nil {
		api.WriteErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, resp)
}
