// Package retrieval assembles ranked context strings from the vector store.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/horizon-ai/docchat/internal/vecstore"
)

// separator joins context lines so chunk boundaries stay visible in prompts.
const separator = "\n\n---\n\n"

// Strategy names the search path that produced a context, for observability.
type Strategy string

const (
	StrategyHybrid Strategy = "hybrid"
	StrategyVector Strategy = "vector"
	StrategyNone   Strategy = "none"
)

// Searcher is the vector-store query surface the engine depends on.
type Searcher interface {
	HybridSearch(ctx context.Context, query string, vector []float32, topK int) ([]vecstore.ScoredChunk, error)
	VectorSearch(ctx context.Context, vector []float32, topK int) ([]vecstore.ScoredChunk, error)
}

// QueryEmbedder turns a search string into its embedding vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Engine retrieves relevant chunks and assembles them into a single context
// string. It never returns an error to the caller: each search strategy is
// tried in order and total failure yields an empty context.
type Engine struct {
	searcher Searcher
	embedder QueryEmbedder
	logger   *slog.Logger
}

// NewEngine creates a retrieval engine.
func NewEngine(searcher Searcher, embedder QueryEmbedder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		searcher: searcher,
		embedder: embedder,
		logger:   logger,
	}
}

// Context runs the ordered strategy list hybrid -> vector -> empty and
// returns the assembled context plus the strategy that produced it.
// An empty string with StrategyNone means "no context available", which the
// caller must not treat as an error.
func (e *Engine) Context(ctx context.Context, searchQuery, lang string, topK int) (string, Strategy) {
	if topK <= 0 {
		topK = 7
	}

	vector, err := e.embedder.EmbedQuery(ctx, searchQuery)
	if err != nil {
		e.logger.Error("query embedding failed", "error", err)
		return "", StrategyNone
	}

	hits, err := e.searcher.HybridSearch(ctx, searchQuery, vector, topK)
	if err == nil && len(hits) > 0 {
		return assembleContext(hits), StrategyHybrid
	}
	if err != nil {
		e.logger.Warn("hybrid search failed, falling back to vector search", "error", err)
	}

	hits, err = e.searcher.VectorSearch(ctx, vector, topK)
	if err != nil {
		e.logger.Error("vector search failed", "error", err)
		return "", StrategyNone
	}
	if len(hits) == 0 {
		return "", StrategyNone
	}
	return assembleContext(hits), StrategyVector
}

// assembleContext renders one traceability-prefixed line per chunk and joins
// them in the store's ranking order. No re-ranking and no deduplication:
// duplicate text across chunks is possible and left to upstream chunking.
func assembleContext(hits []vecstore.ScoredChunk) string {
	lines := make([]string, 0, len(hits))
	for _, hit := range hits {
		lines = append(lines, contextLine(hit))
	}
	return strings.Join(lines, separator)
}

// contextLine formats "[filename | title | chunk:N]\n<text>", omitting the
// bracket entirely when no provenance field is present.
func contextLine(hit vecstore.ScoredChunk) string {
	if hit.Filename == "" && hit.Title == "" && !hit.HasIndex {
		return hit.Text
	}
	index := ""
	if hit.HasIndex {
		index = fmt.Sprintf("%d", hit.ChunkIndex)
	}
	return fmt.Sprintf("[%s | %s | chunk:%s]\n%s", hit.Filename, hit.Title, index, hit.Text)
}
