package models

import (
	"time"
)

// DefaultClassification is applied when an ingestion request carries none.
const DefaultClassification = ClassificationInternal

// UserContext is the caller identity forwarded by the gateway.
// The pipeline only propagates it; retrieval uses it for access filtering.
type UserContext struct {
	UserID      string   `json:"userId"`
	Role        string   `json:"role"`
	Department  string   `json:"department,omitempty"`
	Permissions []string `json:"permissions"`
}

// Document represents an ingested document. Immutable once created.
type Document struct {
	ID             string    `db:"id" json:"documentId"`
	FileName       string    `db:"file_name" json:"filename"`
	FileType       string    `db:"file_type" json:"fileType"`
	Classification string    `db:"classification" json:"classification"`
	Department     string    `db:"department" json:"department,omitempty"`
	StorageURL     string    `db:"storage_url" json:"storageUrl,omitempty"` // local path or s3:// URL
	ChunkCount     int       `db:"chunk_count" json:"chunkCount"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// DocumentChunk represents one text chunk from a document.
type DocumentChunk struct {
	ID         string    `db:"id" json:"chunkId"`
	DocumentID string    `db:"document_id" json:"documentId"`
	ChunkIndex int       `db:"chunk_index" json:"chunkIndex"`
	Content    string    `db:"content" json:"content"`
	TokenCount int       `db:"token_count" json:"tokenCount"`
	Embedding  []float32 `db:"embedding" json:"-"` // pgvector column
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// ScoredChunk is a chunk returned by similarity search.
// RelevanceScore is only populated at query time.
type ScoredChunk struct {
	DocumentChunk
	DocumentName   string  `json:"documentName"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// IngestRequest is delivered by the transport layer for a new document.
type IngestRequest struct {
	DocumentID     string `json:"documentId" validate:"required,max=128,excludesall=/\\,ne=.,ne=.."`
	FileName       string `json:"filename" validate:"required"`
	FilePath       string `json:"filePath" validate:"required"`
	FileType       string `json:"fileType" validate:"required"`
	Classification string `json:"classification" validate:"omitempty,oneof=public internal confidential restricted"`
	Department     string `json:"department,omitempty"`
}

// IngestResult is returned to the ingestion caller.
//
// ChunksCreated counts the chunks stored for the document. Whitespace-only
// windows are not stored, so it can be lower than the growth of the
// chunksCreated metric, which counts every window the chunker emits.
type IngestResult struct {
	DocumentID    string `json:"documentId"`
	Status        string `json:"status"` // processed | queued
	ChunksCreated int    `json:"chunksCreated"`
	Message       string `json:"message"`
}

// QueryRequest is a knowledge base query.
type QueryRequest struct {
	Query       string       `json:"query"`
	UserContext *UserContext `json:"userContext,omitempty"`
}

// SourceDocument is a citation attached to an answer.
type SourceDocument struct {
	DocumentID     string  `json:"documentId"`
	DocumentName   string  `json:"documentName"`
	Page           *int    `json:"page,omitempty"`
	RelevanceScore float64 `json:"relevanceScore"`
	Excerpt        string  `json:"excerpt"`
}

// Answer is what the retrieval+generation collaborator hands back.
type Answer struct {
	Text         string           `json:"answer"`
	Sources      []SourceDocument `json:"sources"`
	Confidence   float64          `json:"confidence"`
	TokensUsed   int              `json:"tokensUsed"`
	ModelVersion string           `json:"modelVersion"`
}

// QueryResponse is the success payload of a query.
type QueryResponse struct {
	QueryID      string           `json:"queryId"`
	Answer       string           `json:"answer"`
	Sources      []SourceDocument `json:"sources"`
	Confidence   float64          `json:"confidence"`
	TokensUsed   int              `json:"tokensUsed"`
	ModelVersion string           `json:"modelVersion"`
}

// MetricsSnapshot is a point-in-time read of the service counters.
type MetricsSnapshot struct {
	DocumentsProcessed     int64   `json:"total_documents_indexed"`
	ChunksCreated          int64   `json:"total_chunks"`
	TotalEmbeddingRequests int64   `json:"total_embedding_requests"`
	CacheHits              int64   `json:"cache_hits"`
	CacheHitRate           float64 `json:"cache_hit_rate"`
}
