package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/horizon-ai/docchat/internal/vecstore"
)

type fakeSearcher struct {
	hybridHits []vecstore.ScoredChunk
	hybridErr  error
	vectorHits []vecstore.ScoredChunk
	vectorErr  error
}

func (f *fakeSearcher) HybridSearch(ctx context.Context, query string, vector []float32, topK int) ([]vecstore.ScoredChunk, error) {
	return f.hybridHits, f.hybridErr
}

func (f *fakeSearcher) VectorSearch(ctx context.Context, vector []float32, topK int) ([]vecstore.ScoredChunk, error) {
	return f.vectorHits, f.vectorErr
}

type fakeQueryEmbedder struct {
	err error
}

func (f *fakeQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func hit(filename, title string, index int, text string) vecstore.ScoredChunk {
	return vecstore.ScoredChunk{
		Filename:   filename,
		Title:      title,
		ChunkIndex: index,
		HasIndex:   true,
		Text:       text,
		Score:      0.9,
	}
}

func TestContext_HybridPreferred(t *testing.T) {
	searcher := &fakeSearcher{
		hybridHits: []vecstore.ScoredChunk{hit("report.pdf", "Overview", 0, "hybrid text")},
		vectorHits: []vecstore.ScoredChunk{hit("report.pdf", "Overview", 1, "vector text")},
	}
	engine := NewEngine(searcher, &fakeQueryEmbedder{}, nil)

	got, strategy := engine.Context(context.Background(), "revenue", "en", 5)
	if strategy != StrategyHybrid {
		t.Errorf("expected hybrid strategy, got %s", strategy)
	}
	if !strings.Contains(got, "hybrid text") {
		t.Errorf("expected hybrid result in context, got %q", got)
	}
}

func TestContext_VectorFallback(t *testing.T) {
	searcher := &fakeSearcher{
		hybridErr:  errors.New("full-text index unavailable"),
		vectorHits: []vecstore.ScoredChunk{hit("report.pdf", "Overview", 2, "vector text")},
	}
	engine := NewEngine(searcher, &fakeQueryEmbedder{}, nil)

	got, strategy := engine.Context(context.Background(), "revenue", "en", 5)
	if strategy != StrategyVector {
		t.Errorf("expected vector strategy, got %s", strategy)
	}
	if got == "" {
		t.Fatal("fallback must still produce a context when vector search succeeds")
	}
	if !strings.Contains(got, "vector text") {
		t.Errorf("unexpected context %q", got)
	}
}

func TestContext_BothPathsFail(t *testing.T) {
	searcher := &fakeSearcher{
		hybridErr: errors.New("down"),
		vectorErr: errors.New("down"),
	}
	engine := NewEngine(searcher, &fakeQueryEmbedder{}, nil)

	got, strategy := engine.Context(context.Background(), "revenue", "en", 5)
	if got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
	if strategy != StrategyNone {
		t.Errorf("expected none strategy, got %s", strategy)
	}
}

func TestContext_EmbeddingFailure(t *testing.T) {
	engine := NewEngine(&fakeSearcher{}, &fakeQueryEmbedder{err: errors.New("quota")}, nil)

	got, strategy := engine.Context(context.Background(), "revenue", "en", 5)
	if got != "" || strategy != StrategyNone {
		t.Errorf("expected empty context on embedding failure, got %q / %s", got, strategy)
	}
}

func TestContext_LineFormatAndOrder(t *testing.T) {
	searcher := &fakeSearcher{
		hybridHits: []vecstore.ScoredChunk{
			hit("report.pdf", "Highlights", 4, "first ranked"),
			hit("report.pdf", "", 0, "second ranked"),
		},
	}
	engine := NewEngine(searcher, &fakeQueryEmbedder{}, nil)

	got, _ := engine.Context(context.Background(), "revenue", "en", 5)

	parts := strings.Split(got, "\n\n---\n\n")
	if len(parts) != 2 {
		t.Fatalf("expected 2 separated lines, got %d", len(parts))
	}
	if parts[0] != "[report.pdf | Highlights | chunk:4]\nfirst ranked" {
		t.Errorf("unexpected first line %q", parts[0])
	}
	// Ranking order preserved, no re-sorting by chunk index.
	if !strings.Contains(parts[1], "second ranked") {
		t.Errorf("ranking order not preserved: %q", parts[1])
	}
}

func TestContextLine_NoProvenance(t *testing.T) {
	line := contextLine(vecstore.ScoredChunk{Text: "bare text"})
	if line != "bare text" {
		t.Errorf("bracket should be omitted entirely, got %q", line)
	}
}
