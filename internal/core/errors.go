package core

import (
	"errors"
)

// Pipeline error kinds. Callers match them with errors.Is; wrapped errors
// carry the detail (offending MIME type, underlying cause, bounds).
var (
	// ErrValidation indicates a query outside the accepted length bounds.
	ErrValidation = errors.New("validation error")

	// ErrInjectionDetected indicates the injection filter rejected a query.
	ErrInjectionDetected = errors.New("injection detected")

	// ErrUnsupportedFileType indicates a MIME type the extractor cannot read.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrExtraction indicates a document could not be read or converted to text.
	ErrExtraction = errors.New("extraction error")

	// ErrEmbeddingGeneration indicates the external embedding call failed
	// or returned a malformed vector.
	ErrEmbeddingGeneration = errors.New("embedding generation error")

	// ErrEmbeddingTimeout indicates the external embedding call exceeded its deadline.
	ErrEmbeddingTimeout = errors.New("embedding timeout")

	// ErrConfiguration indicates invalid settings supplied at startup or construction.
	ErrConfiguration = errors.New("configuration error")

	// ErrDocumentNotFound is returned by stores for unknown document ids.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInternal covers collaborator failures with no more specific kind.
	ErrInternal = errors.New("internal error")
)

// Stable kind identifiers exposed to transport adapters.
const (
	KindValidation          = "VALIDATION_ERROR"
	KindInjectionDetected   = "INJECTION_DETECTED"
	KindUnsupportedFileType = "UNSUPPORTED_FILE_TYPE"
	KindExtraction          = "EXTRACTION_ERROR"
	KindEmbeddingGeneration = "EMBEDDING_GENERATION_ERROR"
	KindEmbeddingTimeout    = "EMBEDDING_TIMEOUT"
	KindConfiguration       = "CONFIGURATION_ERROR"
	KindNotFound            = "NOT_FOUND"
	KindInternal            = "INTERNAL_ERROR"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrValidation, KindValidation},
	{ErrInjectionDetected, KindInjectionDetected},
	{ErrUnsupportedFileType, KindUnsupportedFileType},
	{ErrExtraction, KindExtraction},
	{ErrEmbeddingTimeout, KindEmbeddingTimeout},
	{ErrEmbeddingGeneration, KindEmbeddingGeneration},
	{ErrConfiguration, KindConfiguration},
	{ErrDocumentNotFound, KindNotFound},
}

// ErrorKind maps err to its stable kind. Unknown errors are KindInternal.
func ErrorKind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
