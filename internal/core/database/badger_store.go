package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

// Key layout:
//
//	doc/<documentID>                 -> models.Document (JSON)
//	chunk/<documentID>/<%08d index>  -> storedChunk (JSON)
//
// Document ids never contain '/', so one document's chunk prefix is never a
// prefix of another's.
const (
	docPrefix   = "doc/"
	chunkPrefix = "chunk/"
)

func docKey(id string) []byte { return []byte(docPrefix + id) }

func chunkDocPrefix(docID string) []byte { return []byte(chunkPrefix + docID + "/") }

func chunkKey(docID string, index int) []byte {
	return []byte(fmt.Sprintf("%s%s/%08d", chunkPrefix, docID, index))
}

// storedChunk keeps the vector that models.DocumentChunk hides from JSON.
type storedChunk struct {
	models.DocumentChunk
	Vector []float32 `json:"vector"`
}

// BadgerStore is an embedded chunk store for single-node deployments and
// tests. Search is a brute-force cosine scan.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ core.ChunkStore = (*BadgerStore)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBadgerStore opens the store at path, creating the directory if needed.
// inMemory ignores path and keeps everything in RAM.
func OpenBadgerStore(path string, inMemory bool) (*BadgerStore, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}

	logger := slog.Default().With("component", "badger_store")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) SaveDocument(_ context.Context, doc *models.Document, chunks []models.DocumentChunk) error {
	if doc == nil {
		return errors.New("nil document")
	}
	if err := core.ValidateDocumentID(doc.ID); err != nil {
		return err
	}

	stored := *doc
	stored.ChunkCount = len(chunks)
	docVal, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, chunkDocPrefix(doc.ID)); err != nil {
			return err
		}
		if err := txn.Set(docKey(doc.ID), docVal); err != nil {
			return err
		}
		for _, ch := range chunks {
			ch.DocumentID = doc.ID
			val, err := json.Marshal(storedChunk{DocumentChunk: ch, Vector: ch.Embedding})
			if err != nil {
				return err
			}
			if err := txn.Set(chunkKey(doc.ID, ch.ChunkIndex), val); err != nil {
				return fmt.Errorf("set chunk %d: %w", ch.ChunkIndex, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	doc.ChunkCount = len(chunks)
	return nil
}

func (s *BadgerStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, docKey(id), &doc)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", core.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *BadgerStore) ListDocuments(_ context.Context) ([]models.Document, error) {
	docs := []models.Document{}
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(docPrefix), func(val []byte) error {
			var d models.Document
			if err := json.Unmarshal(val, &d); err != nil {
				return err
			}
			docs = append(docs, d)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(docs, func(a, b models.Document) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return docs, nil
}

func (s *BadgerStore) GetChunks(_ context.Context, documentID string) ([]models.DocumentChunk, error) {
	if core.ValidateDocumentID(documentID) != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrDocumentNotFound, documentID)
	}
	chunks := []models.DocumentChunk{}
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(documentID)); err != nil {
			return err
		}
		return scanPrefix(txn, chunkDocPrefix(documentID), func(val []byte) error {
			var sc storedChunk
			if err := json.Unmarshal(val, &sc); err != nil {
				return err
			}
			sc.Embedding = sc.Vector
			chunks = append(chunks, sc.DocumentChunk)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", core.ErrDocumentNotFound, documentID)
	}
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (s *BadgerStore) SearchChunks(ctx context.Context, queryVec []float32, user *models.UserContext, limit int) ([]models.ScoredChunk, error) {
	docs, err := s.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	visible := make(map[string]string, len(docs))
	for _, d := range docs {
		if models.CanAccess(user, d.Classification, d.Department) {
			visible[d.ID] = d.FileName
		}
	}

	hits := []models.ScoredChunk{}
	err = s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(chunkPrefix), func(val []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var sc storedChunk
			if err := json.Unmarshal(val, &sc); err != nil {
				return err
			}
			name, ok := visible[sc.DocumentID]
			if !ok {
				return nil
			}
			hits = append(hits, models.ScoredChunk{
				DocumentChunk:  sc.DocumentChunk,
				DocumentName:   name,
				RelevanceScore: cosineSimilarity(queryVec, sc.Vector),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	hits = topK(hits, limit)
	s.logger.Debug("chunk search", "hits", len(hits), "visibleDocuments", len(visible))
	return hits, nil
}

func (s *BadgerStore) DeleteDocument(_ context.Context, id string) error {
	if core.ValidateDocumentID(id) != nil {
		return fmt.Errorf("%w: %s", core.ErrDocumentNotFound, id)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(id)); err != nil {
			return err
		}
		if err := deletePrefix(txn, chunkDocPrefix(id)); err != nil {
			return err
		}
		return txn.Delete(docKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", core.ErrDocumentNotFound, id)
	}
	return err
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func scanPrefix(txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := txn.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := iter.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := txn.NewIterator(opts)

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
