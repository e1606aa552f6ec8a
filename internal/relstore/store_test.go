//go:build integration

package relstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizon-ai/docchat/internal/chunk"
)

// setupTestStore connects to a local PostgreSQL and ensures the schema.
// Skips the test when the database is not running.
func setupTestStore(t *testing.T) *Store {
	store, err := Connect(context.Background(), ConnectionParams{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "docchat_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}

	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func testChunks(docHash string, n int) []chunk.Chunk {
	chunks := make([]chunk.Chunk, n)
	for i := range chunks {
		chunks[i] = chunk.Chunk{
			ChunkID:      uuid.New(),
			DocHash:      docHash,
			ChunkIndex:   i,
			Text:         "chunk body",
			Filename:     "report.pdf",
			Title:        "Overview",
			PageNumbers:  []int{i + 1},
			ContentTypes: []string{"text"},
		}
	}
	return chunks
}

func TestInsertChunks_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	docHash := "itest-" + uuid.New().String()
	chunks := testChunks(docHash, 3)

	inserted, err := store.InsertChunks(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted, "first run should insert every row")

	// Identical chunk IDs are skipped by the conflict policy.
	inserted, err = store.InsertChunks(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted, "second run should insert nothing")

	count, err := store.CountChunksByDoc(ctx, docHash)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "no duplicate rows after re-run")
}

func TestInsertChunks_Empty(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	inserted, err := store.InsertChunks(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	// Second ensure must not fail or alter anything.
	require.NoError(t, store.EnsureSchema(context.Background()))
}

func TestHealth(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	assert.NoError(t, store.Health(context.Background()))
}
