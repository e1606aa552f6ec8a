// Package embedding converts text into fixed-length float vectors via the
// OpenAI embeddings API.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/horizon-ai/docchat/internal/chunk"
)

const (
	// Model is the OpenAI model used for generating embeddings.
	Model = "text-embedding-3-small"

	// Dimension is the vector size produced by Model. Every chunk vector
	// written to the vector store must have exactly this length.
	Dimension = 1536

	// MaxInputTokens is the model's maximum input length in tokens.
	MaxInputTokens = 8191

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute
	// rate limits. The API accepts up to 2048 texts per request.
	DefaultBatchSize = 500

	// healthTimeout bounds the lightweight model probe used by /health.
	healthTimeout = 5 * time.Second
)

// ModelInfo describes the active embedding model.
type ModelInfo struct {
	Model          string `json:"model"`
	Dimension      int    `json:"dimension"`
	MaxInputTokens int    `json:"max_input_tokens"`
}

// Embedder generates embeddings in batches with exponential backoff on rate
// limit errors. It is safe for concurrent use.
type Embedder struct {
	client    *Client
	batchSize int
}

// NewEmbedder creates an Embedder with the given client and optional batch
// size. A batchSize of 0 selects DefaultBatchSize.
func NewEmbedder(client *Client, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Embedder{
		client:    client,
		batchSize: batchSize,
	}
}

// Info reports the active model's name, dimensionality, and input limit.
func (e *Embedder) Info() ModelInfo {
	return ModelInfo{
		Model:          Model,
		Dimension:      Dimension,
		MaxInputTokens: MaxInputTokens,
	}
}

// Health probes the embeddings API with a minimal request under a short
// timeout. Returns nil when the model endpoint is reachable.
func (e *Embedder) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	_, err := e.client.client.Models.Get(ctx, Model)
	if err != nil {
		return fmt.Errorf("embedding model unavailable: %w", err)
	}
	return nil
}

// EmbedQuery embeds a single search query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// GenerateEmbeddings embeds the given texts, preserving input order.
// Requests are batched; rate limit errors retry with exponential backoff.
func (e *Embedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	var all [][]float32

	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		batch := texts[i:end]

		vectors, err := e.embedBatchWithRetry(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, vectors...)
	}

	return all, nil
}

// EmbedChunks attaches a vector to every chunk that does not already carry
// one, preserving chunk order. Chunks with existing vectors are left alone.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []chunk.Chunk) ([]chunk.Chunk, error) {
	var texts []string
	var missing []int
	for i, c := range chunks {
		if len(c.Vector) == 0 {
			texts = append(texts, c.Text)
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return chunks, nil
	}

	vectors, err := e.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(missing), err)
	}

	out := make([]chunk.Chunk, len(chunks))
	copy(out, chunks)
	for j, i := range missing {
		out[i].Vector = vectors[j]
	}
	return out, nil
}

// embedBatchWithRetry embeds one batch, retrying with exponential backoff on
// rate limit errors (HTTP 429). Other errors fail immediately.
func (e *Embedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: Model,
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return vectors, err
}

// isRateLimitError checks for an HTTP 429 from the API.
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 narrows the API's float64 vectors for storage.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
