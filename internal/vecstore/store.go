// Package vecstore persists documents and embedded chunks in Qdrant, the
// source of truth for similarity search.
package vecstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/horizon-ai/docchat/internal/chunk"
)

// upsertBatchSize bounds memory and request size per upsert round trip.
const upsertBatchSize = 100

// Store wraps the Qdrant client with connection management and health checks.
type Store struct {
	client *qdrant.Client
	logger *slog.Logger
}

// NewStore creates a Qdrant client and validates connectivity. The startup
// health check retries with exponential backoff and fails fast if Qdrant
// stays unreachable.
func NewStore(host string, port int, logger *slog.Logger) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	store := &Store{client: client, logger: logger}

	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry probes Qdrant with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

// Health performs a single health check against Qdrant.
func (s *Store) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureSchema creates both collections and their payload indexes if absent.
// Idempotent; never alters an existing collection.
func (s *Store) EnsureSchema(ctx context.Context) error {
	existing, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	if !have[DocumentCollection] {
		// Metadata-only collection: empty named-vector config, no vectors
		// are ever attached to its points.
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: DocumentCollection,
			VectorsConfig:  qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{}),
		})
		if err != nil {
			return fmt.Errorf("create %s collection: %w", DocumentCollection, err)
		}
		if err := s.createDocumentIndexes(ctx); err != nil {
			return err
		}
	}

	if !have[ChunkCollection] {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: ChunkCollection,
			VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
				VectorName: {
					Size:     VectorDimension,
					Distance: qdrant.Distance_Cosine,
				},
			}),
		})
		if err != nil {
			return fmt.Errorf("create %s collection: %w", ChunkCollection, err)
		}
		if err := s.createChunkIndexes(ctx); err != nil {
			return err
		}
	}

	return nil
}

// createDocumentIndexes indexes the filterable document fields.
func (s *Store) createDocumentIndexes(ctx context.Context) error {
	for _, field := range []string{"doc_hash", "filename"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: DocumentCollection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create document index %s: %w", field, err)
		}
	}
	return nil
}

// createChunkIndexes indexes the filterable chunk fields plus a full-text
// index on the chunk text, which the hybrid search path depends on.
func (s *Store) createChunkIndexes(ctx context.Context) error {
	keyword := []string{"chunk_id", "doc_hash", "filename", "from_document"}
	for _, field := range keyword {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: ChunkCollection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create chunk index %s: %w", field, err)
		}
	}

	_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: ChunkCollection,
		FieldName:      "chunk_index",
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
	})
	if err != nil {
		return fmt.Errorf("create chunk index chunk_index: %w", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: ChunkCollection,
		FieldName:      "text",
		FieldType:      qdrant.FieldType_FieldTypeText.Enum(),
	})
	if err != nil {
		return fmt.Errorf("create chunk full-text index: %w", err)
	}

	return nil
}

// upsertWithRetry performs one upsert with exponential backoff retry.
func (s *Store) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		})
		return err
	}, backoff.WithContext(b, ctx))
}

// UpsertDocument stores the parent document under its deterministic identity.
// Re-ingesting the same file upserts the same point, so the operation is a
// natural no-op for existing documents.
func (s *Store) UpsertDocument(ctx context.Context, doc chunk.Document) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(doc.ID.String()),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
		Payload: qdrant.NewValueMap(map[string]any{
			"doc_hash": doc.DocHash,
			"filename": doc.Filename,
			"mimetype": doc.Mimetype,
		}),
	}

	if err := s.upsertWithRetry(ctx, DocumentCollection, []*qdrant.PointStruct{point}); err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}
	return nil
}

// chunkPointID derives the vector-store point identity from the relational
// chunk_id, keeping re-ingestion idempotent on the chunk level too.
func chunkPointID(chunkID uuid.UUID) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(chunkID.String())).String()
}

// UpsertChunks batch-inserts embedded chunks, attaching each chunk's vector
// and a reference to the parent document. Chunks lacking a vector are skipped
// with a warning rather than failing the batch; a failed batch is reported
// and later batches continue, so earlier committed batches are unaffected.
// Within the upsert sequence the builder's chunk_index ordering is preserved.
func (s *Store) UpsertChunks(ctx context.Context, doc chunk.Document, chunks []chunk.Chunk) (UpsertReport, error) {
	report := UpsertReport{}

	var points []*qdrant.PointStruct
	for _, c := range chunks {
		if len(c.Vector) == 0 {
			s.logger.Warn("chunk has no vector, skipping", "chunk_index", c.ChunkIndex, "doc_hash", c.DocHash)
			report.Skipped++
			continue
		}
		if len(c.Vector) != VectorDimension {
			report.Failures = append(report.Failures, fmt.Sprintf(
				"chunk %d: %v: got %d dimensions, expected %d",
				c.ChunkIndex, ErrDimensionMismatch, len(c.Vector), VectorDimension))
			continue
		}

		points = append(points, &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(chunkPointID(c.ChunkID)),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				VectorName: qdrant.NewVector(c.Vector...),
			}),
			Payload: qdrant.NewValueMap(chunkPayload(doc, c)),
		})
	}

	for start := 0; start < len(points); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(points))
		if err := s.upsertWithRetry(ctx, ChunkCollection, points[start:end]); err != nil {
			report.Failures = append(report.Failures,
				fmt.Sprintf("batch %d-%d: %v", start, end, err))
			continue
		}
		report.Upserted += end - start
	}

	return report, nil
}

// chunkPayload builds the chunk point payload, including the from_document
// reference to the parent.
func chunkPayload(doc chunk.Document, c chunk.Chunk) map[string]any {
	pages := make([]any, len(c.PageNumbers))
	for i, p := range c.PageNumbers {
		pages[i] = p
	}
	types := make([]any, len(c.ContentTypes))
	for i, ct := range c.ContentTypes {
		types[i] = ct
	}
	boxes := make([]any, len(c.BoundingBoxes))
	for i, b := range c.BoundingBoxes {
		boxes[i] = b
	}

	return map[string]any{
		"chunk_id":       c.ChunkID.String(),
		"doc_hash":       c.DocHash,
		"chunk_index":    c.ChunkIndex,
		"text":           c.Text,
		"filename":       c.Filename,
		"title":          c.Title,
		"page_numbers":   pages,
		"content_types":  types,
		"bounding_boxes": boxes,
		"from_document":  doc.ID.String(),
	}
}

// HybridSearch combines the lexical and vector signals: a full-text match on
// the chunk text constrains the candidate set while the embedding ranks it.
// Results come back in the store's relevance order with scores attached.
func (s *Store) HybridSearch(ctx context.Context, query string, vector []float32, topK int) ([]ScoredChunk, error) {
	if len(vector) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), VectorDimension)
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchText("text", query),
		},
	}
	return s.queryChunks(ctx, vector, filter, topK)
}

// VectorSearch performs pure nearest-neighbor search over chunk embeddings.
func (s *Store) VectorSearch(ctx context.Context, vector []float32, topK int) ([]ScoredChunk, error) {
	if len(vector) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), VectorDimension)
	}
	return s.queryChunks(ctx, vector, nil, topK)
}

func (s *Store) queryChunks(ctx context.Context, vector []float32, filter *qdrant.Filter, topK int) ([]ScoredChunk, error) {
	vectorName := VectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: ChunkCollection,
		Query:          qdrant.NewQuery(vector...),
		Using:          &vectorName,
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}

	chunks := make([]ScoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		sc := ScoredChunk{
			ChunkID:  payload["chunk_id"].GetStringValue(),
			Text:     payload["text"].GetStringValue(),
			Filename: payload["filename"].GetStringValue(),
			Title:    payload["title"].GetStringValue(),
			Score:    float64(result.Score),
		}
		if idx, ok := payload["chunk_index"]; ok {
			sc.ChunkIndex = int(idx.GetIntegerValue())
			sc.HasIndex = true
		}
		chunks = append(chunks, sc)
	}

	return chunks, nil
}

// Info returns point counts for both collections.
func (s *Store) Info(ctx context.Context) (*CollectionInfo, error) {
	docs, err := s.client.GetCollectionInfo(ctx, DocumentCollection)
	if err != nil {
		return nil, fmt.Errorf("get %s collection: %w", DocumentCollection, err)
	}
	chunks, err := s.client.GetCollectionInfo(ctx, ChunkCollection)
	if err != nil {
		return nil, fmt.Errorf("get %s collection: %w", ChunkCollection, err)
	}

	return &CollectionInfo{
		Documents: docs.GetPointsCount(),
		Chunks:    chunks.GetPointsCount(),
	}, nil
}

// Close closes the Qdrant client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
