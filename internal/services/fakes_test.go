package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

type fakeEmbedder struct {
	calls atomic.Int64
	err   error
	dim   int
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	vec := make([]float32, max(f.dim, 1))
	vec[0] = float32(len(text))
	return vec, nil
}

type memStore struct {
	mu      sync.Mutex
	docs    map[string]models.Document
	chunks  map[string][]models.DocumentChunk
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]models.Document{}, chunks: map[string][]models.DocumentChunk{}}
}

var _ core.ChunkStore = (*memStore)(nil)

func (m *memStore) SaveDocument(_ context.Context, doc *models.Document, chunks []models.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	doc.ChunkCount = len(chunks)
	m.docs[doc.ID] = *doc
	m.chunks[doc.ID] = append([]models.DocumentChunk(nil), chunks...)
	return nil
}

func (m *memStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, core.ErrDocumentNotFound
	}
	return &d, nil
}

func (m *memStore) ListDocuments(_ context.Context) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Document{}
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

func (m *memStore) GetChunks(_ context.Context, id string) ([]models.DocumentChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return nil, core.ErrDocumentNotFound
	}
	return m.chunks[id], nil
}

func (m *memStore) SearchChunks(context.Context, []float32, *models.UserContext, int) ([]models.ScoredChunk, error) {
	return nil, nil
}

func (m *memStore) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return core.ErrDocumentNotFound
	}
	delete(m.docs, id)
	delete(m.chunks, id)
	return nil
}

func (m *memStore) Close() error { return nil }

type fakeAnswerer struct {
	answer *models.Answer
	err    error
	req    core.AnswerRequest
	calls  int
}

func (f *fakeAnswerer) Answer(_ context.Context, req core.AnswerRequest) (*models.Answer, error) {
	f.calls++
	f.req = req
	return f.answer, f.err
}

type memObjects struct {
	objects map[string][]byte
	deleted []string
}

func newMemObjects() *memObjects { return &memObjects{objects: map[string][]byte{}} }

func (m *memObjects) UploadFile(_ context.Context, bucket, key string, data io.Reader, _ string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return "", err
	}
	m.objects[bucket+"/"+key] = buf.Bytes()
	return "s3://" + bucket + "/" + key, nil
}

func (m *memObjects) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	b, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return b, nil
}

func (m *memObjects) DeleteFile(_ context.Context, bucket, key string) error {
	m.deleted = append(m.deleted, bucket+"/"+key)
	delete(m.objects, bucket+"/"+key)
	return nil
}
