// Package ingest coordinates chunk persistence across the relational and
// vector stores.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/horizon-ai/docchat/internal/chunk"
	"github.com/horizon-ai/docchat/internal/vecstore"
)

// RelationalStore is the relational side of the dual-store write.
type RelationalStore interface {
	EnsureSchema(ctx context.Context) error
	InsertChunks(ctx context.Context, chunks []chunk.Chunk) (int, error)
}

// VectorStore is the similarity-search side of the dual-store write.
type VectorStore interface {
	EnsureSchema(ctx context.Context) error
	UpsertDocument(ctx context.Context, doc chunk.Document) error
	UpsertChunks(ctx context.Context, doc chunk.Document, chunks []chunk.Chunk) (vecstore.UpsertReport, error)
}

// Embedder attaches vectors to chunks that lack them.
type Embedder interface {
	EmbedChunks(ctx context.Context, chunks []chunk.Chunk) ([]chunk.Chunk, error)
}

// Result summarizes one ingestion run. The two stores do not share a
// transaction: relational success combined with partial vector-store failure
// is an accepted terminal state, surfaced here rather than escalated.
type Result struct {
	DocID       string
	ChunksTotal int
	RelInserted int
	VecUpserted int
	VecSkipped  int
	Failures    []string
	Duration    time.Duration
}

// Coordinator persists a document and its chunks into both stores.
// Running it twice with identical input converges to identical final state.
type Coordinator struct {
	rel      RelationalStore
	vec      VectorStore
	embedder Embedder
	logger   *slog.Logger
}

// NewCoordinator creates a dual-store ingestion coordinator.
func NewCoordinator(rel RelationalStore, vec VectorStore, embedder Embedder, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		rel:      rel,
		vec:      vec,
		embedder: embedder,
		logger:   logger,
	}
}

// Ingest writes the document and its chunks to both stores in order:
// schema, embeddings, relational batch (single transaction, conflict-skip),
// then vector-store document and chunk batches. Relational failure aborts
// the relational side only; vector-store chunk failures are collected per
// object and never rolled back.
func (c *Coordinator) Ingest(ctx context.Context, doc chunk.Document, chunks []chunk.Chunk) (*Result, error) {
	start := time.Now()
	if len(chunks) == 0 {
		return nil, chunk.ErrEmptyDocument
	}

	result := &Result{
		DocID:       doc.ID.String(),
		ChunksTotal: len(chunks),
	}

	if err := c.rel.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("relational schema: %w", err)
	}
	if err := c.vec.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("vector schema: %w", err)
	}

	embedded, err := c.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	inserted, err := c.rel.InsertChunks(ctx, embedded)
	if err != nil {
		// Whole relational batch rolled back; the vector side still
		// proceeds so an idempotent retry can reconcile the two stores.
		result.Failures = append(result.Failures, fmt.Sprintf("relational insert: %v", err))
		c.logger.Warn("relational insert failed, batch rolled back", "doc", doc.ID, "error", err)
	} else {
		result.RelInserted = inserted
	}

	docOK := true
	if err := c.vec.UpsertDocument(ctx, doc); err != nil {
		docOK = false
		result.Failures = append(result.Failures, fmt.Sprintf("vector document upsert: %v", err))
		c.logger.Warn("vector document upsert failed", "doc", doc.ID, "error", err)
	}

	if docOK {
		report, err := c.vec.UpsertChunks(ctx, doc, embedded)
		if err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("vector chunk upsert: %v", err))
		} else {
			result.VecUpserted = report.Upserted
			result.VecSkipped = report.Skipped
			result.Failures = append(result.Failures, report.Failures...)
		}
	}

	result.Duration = time.Since(start)
	c.logger.Info("ingestion complete",
		"doc", doc.ID,
		"chunks", result.ChunksTotal,
		"rel_inserted", result.RelInserted,
		"vec_upserted", result.VecUpserted,
		"vec_skipped", result.VecSkipped,
		"failures", len(result.Failures),
		"duration", result.Duration,
	)

	return result, nil
}
