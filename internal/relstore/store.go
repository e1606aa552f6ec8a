// Package relstore persists chunk metadata in PostgreSQL, the source of
// truth for structured chunk data.
package relstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/horizon-ai/docchat/internal/chunk"
)

const (
	// connectAttempts and connectInterval bound the startup connection
	// retry. After the final attempt the failure is surfaced to the caller.
	connectAttempts = 10
	connectInterval = 3 * time.Second

	// insertBatchSize caps the number of rows queued per round trip inside
	// the insert transaction.
	insertBatchSize = 500

	healthTimeout = 3 * time.Second
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_id        UUID PRIMARY KEY,
	doc_hash        TEXT NOT NULL,
	chunk_index     INTEGER NOT NULL,
	filename        TEXT NOT NULL,
	page_numbers    JSONB,
	title           TEXT,
	text            TEXT NOT NULL,
	content_types   JSONB,
	bounding_boxes  JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_chunks_doc_hash ON chunks (doc_hash);
CREATE INDEX IF NOT EXISTS idx_chunks_filename ON chunks (filename);
`

const insertSQL = `
INSERT INTO chunks (
	chunk_id, doc_hash, chunk_index, filename,
	page_numbers, title, text, content_types, bounding_boxes
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (chunk_id) DO NOTHING`

// ConnectionParams holds PostgreSQL connection settings.
type ConnectionParams struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Store provides chunk persistence over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect creates a connection pool and verifies it with a bounded
// fixed-interval retry. Gives up and surfaces the failure after the last
// attempt; no background reconnection is performed.
func Connect(ctx context.Context, params ConnectionParams) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	ping := func() error { return pool.Ping(ctx) }
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(connectInterval), connectAttempts-1),
		ctx,
	)
	if err := backoff.Retry(ping, policy); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrPostgresUnreachable, err)
	}

	return &Store{pool: pool}, nil
}

// EnsureSchema creates the chunks table and its indexes if absent. It never
// alters an existing schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure chunks schema: %w", err)
	}
	return nil
}

// InsertChunks batch-inserts chunk rows inside a single transaction with an
// ON CONFLICT (chunk_id) DO NOTHING policy. Rows colliding on chunk_id are
// silently skipped; the count of newly inserted rows is returned. Any
// failure rolls back the entire batch, leaving no partial state.
func (s *Store) InsertChunks(ctx context.Context, chunks []chunk.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin insert transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for start := 0; start < len(chunks); start += insertBatchSize {
		end := min(start+insertBatchSize, len(chunks))

		batch := &pgx.Batch{}
		for _, c := range chunks[start:end] {
			pages, err := nullableJSON(c.PageNumbers)
			if err != nil {
				return 0, fmt.Errorf("chunk %d: encode page numbers: %w", c.ChunkIndex, err)
			}
			types, err := nullableJSON(c.ContentTypes)
			if err != nil {
				return 0, fmt.Errorf("chunk %d: encode content types: %w", c.ChunkIndex, err)
			}
			boxes, err := nullableJSON(c.BoundingBoxes)
			if err != nil {
				return 0, fmt.Errorf("chunk %d: encode bounding boxes: %w", c.ChunkIndex, err)
			}

			batch.Queue(insertSQL,
				c.ChunkID, c.DocHash, c.ChunkIndex, c.Filename,
				pages, nullableText(c.Title), c.Text, types, boxes,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return 0, fmt.Errorf("insert chunk %d: %w", i, err)
			}
			inserted += int(tag.RowsAffected())
		}
		if err := results.Close(); err != nil {
			return 0, fmt.Errorf("close batch results: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit chunk insert: %w", err)
	}
	return inserted, nil
}

// CountChunksByDoc returns the number of stored chunks for a document hash.
func (s *Store) CountChunksByDoc(ctx context.Context, docHash string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM chunks WHERE doc_hash = $1`, docHash,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chunks for %s: %w", docHash, err)
	}
	return count, nil
}

// Health pings the database under a short timeout.
func (s *Store) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// nullableJSON encodes a slice as JSONB, mapping empty slices to SQL NULL
// the way the ingestion rows have always been stored.
func nullableJSON[T any](values []T) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return encoded, nil
}

// nullableText maps "" to SQL NULL.
func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
