package vecstore

// DocumentCollection holds non-vectorized parent document metadata.
const DocumentCollection = "documents"

// ChunkCollection holds vectorized chunks with a reference to their parent.
const ChunkCollection = "doc_chunks"

// VectorName is the named vector carrying chunk embeddings.
const VectorName = "content"

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536

// ScoredChunk is one retrieval hit with its relevance score, in the store's
// ranking order.
type ScoredChunk struct {
	ChunkID    string
	Text       string
	Filename   string
	Title      string
	ChunkIndex int
	HasIndex   bool
	Score      float64
}

// UpsertReport summarizes a chunk batch upsert. Failures are reported, not
// rolled back; earlier committed batches stay committed.
type UpsertReport struct {
	Upserted int
	Skipped  int
	Failures []string
}

// CollectionInfo contains point counts for diagnostics.
type CollectionInfo struct {
	Documents uint64
	Chunks    uint64
}
