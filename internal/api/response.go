package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
)

// Transport-only error codes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInvalidToken = "INVALID_TOKEN"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeForbidden    = "FORBIDDEN"
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
)

// ErrorBody is the error half of the response envelope.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "err", err)
	}
}

// WriteError writes {"success":false,"error":{...}}.
func WriteError(w http.ResponseWriter, status int, code, message string, details map[string]string) {
	WriteJSON(w, status, errorEnvelope{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}

// WriteErr maps a pipeline error to its status and kind. Internal errors
// get a generic message so collaborator details stay in the logs.
func WriteErr(w http.ResponseWriter, err error) {
	kind := core.ErrorKind(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "kind", kind, "err", err)
		WriteError(w, status, kind, publicMessage(kind), nil)
		return
	}
	WriteError(w, status, kind, clientMessage(err, kind), nil)
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind string) int {
	switch kind {
	case core.KindValidation, core.KindInjectionDetected, core.KindUnsupportedFileType:
		return http.StatusBadRequest
	case core.KindExtraction:
		return http.StatusUnprocessableEntity
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindEmbeddingTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func clientMessage(err error, kind string) string {
	switch kind {
	case core.KindInjectionDetected:
		return "Query contains potentially malicious content"
	case core.KindValidation, core.KindUnsupportedFileType, core.KindExtraction, core.KindNotFound:
		return err.Error()
	}
	return publicMessage(kind)
}

func publicMessage(kind string) string {
	switch kind {
	case core.KindEmbeddingTimeout:
		return "Embedding service timed out"
	case core.KindEmbeddingGeneration:
		return "Embedding service failed"
	default:
		return "Internal server error"
	}
}
