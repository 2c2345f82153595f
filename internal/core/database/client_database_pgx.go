package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

// DatabaseClient is the Postgres + pgvector chunk store.
type DatabaseClient struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ core.ChunkStore = (*DatabaseClient)(nil)

// NewDatabaseClient opens the pool, pings, and bootstraps the schema.
// When sslCertPath is set the connection verifies the server against it.
func NewDatabaseClient(ctx context.Context, databaseURL, sslCertPath string) (*DatabaseClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL is empty", core.ErrConfiguration)
	}

	dsn, err := withSSL(databaseURL, sslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	// Ensure bootstrap once
	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db, logger: slog.Default().With("component", "postgres_store")}, nil
}

// withSSL appends verify-ca parameters to the URL when a root cert is configured.
func withSSL(databaseURL, sslCertPath string) (string, error) {
	if sslCertPath == "" {
		return databaseURL, nil
	}
	if _, err := os.Stat(sslCertPath); err != nil {
		return "", fmt.Errorf("%w: ssl cert not accessible at %q: %w", core.ErrConfiguration, sslCertPath, err)
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid DATABASE_URL: %w", core.ErrConfiguration, err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", sslCertPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// SaveDocument replaces the document row and all of its chunks in one transaction.
func (c *DatabaseClient) SaveDocument(ctx context.Context, doc *models.Document, chunks []models.DocumentChunk) error {
	if doc == nil {
		return errors.New("nil document")
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const upsertDoc = `
		INSERT INTO documents
			(id, file_name, file_type, classification, department, storage_url, chunk_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			file_type = EXCLUDED.file_type,
			classification = EXCLUDED.classification,
			department = EXCLUDED.department,
			storage_url = EXCLUDED.storage_url,
			chunk_count = EXCLUDED.chunk_count,
			created_at = EXCLUDED.created_at
	`
	if _, err := tx.ExecContext(ctx, upsertDoc,
		doc.ID, doc.FileName, doc.FileType, doc.Classification, doc.Department, doc.StorageURL, len(chunks), doc.CreatedAt,
	); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}

	const insertChunk = `
		INSERT INTO document_chunks
			(id, document_id, chunk_index, content, token_count, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	stmt, err := tx.PrepareContext(ctx, insertChunk)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if _, err := stmt.ExecContext(ctx,
			ch.ID, doc.ID, ch.ChunkIndex, ch.Content, ch.TokenCount, pgvector.NewVector(ch.Embedding), ch.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", ch.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	doc.ChunkCount = len(chunks)
	return nil
}

func (c *DatabaseClient) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, file_name, file_type, classification, department, storage_url, chunk_count, created_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.FileName, &d.FileType, &d.Classification, &d.Department, &d.StorageURL, &d.ChunkCount, &d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocuments(ctx context.Context) ([]models.Document, error) {
	const q = `
		SELECT id, file_name, file_type, classification, department, storage_url, chunk_count, created_at
		FROM documents
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.FileName, &d.FileType, &d.Classification, &d.Department, &d.StorageURL, &d.ChunkCount, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) GetChunks(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	if _, err := c.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}

	const q = `
		SELECT id, document_id, chunk_index, content, token_count, embedding, created_at
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_index ASC
	`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.DocumentChunk{}
	for rows.Next() {
		var (
			ch  models.DocumentChunk
			emb pgvector.Vector
		)
		if err := rows.Scan(
			&ch.ID, &ch.DocumentID, &ch.ChunkIndex, &ch.Content, &ch.TokenCount, &emb, &ch.CreatedAt,
		); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		out = append(out, ch)
	}
	return out, rows.Err()
}

// SearchChunks ranks chunks by cosine distance and applies the classification
// rules of models.CanAccess in SQL.
func (c *DatabaseClient) SearchChunks(ctx context.Context, queryVec []float32, user *models.UserContext, limit int) ([]models.ScoredChunk, error) {
	const q = `
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.token_count, c.created_at,
		       d.file_name, 1 - (c.embedding <=> $1) AS score
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.classification IN ('public', 'internal', '')
		   OR $2
		   OR (d.department <> '' AND lower(d.department) = lower($3))
		ORDER BY c.embedding <=> $1
		LIMIT $4
	`
	var (
		isAdmin    bool
		department string
	)
	if user != nil {
		isAdmin = models.CanAccess(user, models.ClassificationRestricted, "")
		department = user.Department
	}

	rows, err := c.db.QueryContext(ctx, q, pgvector.NewVector(queryVec), isAdmin, department, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ScoredChunk{}
	for rows.Next() {
		var (
			sc    models.ScoredChunk
			score sql.NullFloat64
		)
		if err := rows.Scan(
			&sc.ID, &sc.DocumentID, &sc.ChunkIndex, &sc.Content, &sc.TokenCount, &sc.CreatedAt,
			&sc.DocumentName, &score,
		); err != nil {
			return nil, err
		}
		sc.RelevanceScore = finiteScore(score.Float64)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.logger.Debug("chunk search", "hits", len(out), "limit", limit)
	return out, nil
}

// DeleteDocument removes the document; chunks go with it through ON DELETE CASCADE.
func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrDocumentNotFound, id)
	}
	return nil
}
