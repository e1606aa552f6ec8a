// Package main provides the ingestion CLI for document chunk loading.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/horizon-ai/docchat/internal/chunk"
	"github.com/horizon-ai/docchat/internal/embedding"
	"github.com/horizon-ai/docchat/internal/ingest"
	"github.com/horizon-ai/docchat/internal/relstore"
	"github.com/horizon-ai/docchat/internal/vecstore"
)

var rootCmd = &cobra.Command{
	Use:   "docchat-ingest",
	Short: "Document ingestion tool for the Horizon chat service",
	Long:  "CLI tool for loading converted document chunks into Postgres and Qdrant",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <segments.json>",
	Short: "Ingest a converted document into both stores",
	Long: `Reads a document conversion export and loads it into both stores.

This command:
1. Reads the segment list produced by the document conversion service
2. Builds chunks with stable identities from the document hash
3. Generates embeddings for every chunk
4. Inserts chunk rows into Postgres (existing rows are skipped)
5. Upserts the document and chunk points into Qdrant

Environment variables:
  POSTGRES_HOST     Postgres hostname (default: localhost)
  POSTGRES_PORT     Postgres port (default: 5432)
  POSTGRES_USER     Postgres user (default: postgres)
  POSTGRES_PASSWORD Postgres password (default: postgres)
  POSTGRES_DB       Postgres database (default: docchat)
  QDRANT_HOST       Qdrant hostname (default: localhost)
  QDRANT_PORT       Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY    OpenAI API key for embeddings (required)`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	// 1. Read the conversion export
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read segments file: %w", err)
	}
	var segments []chunk.Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return fmt.Errorf("failed to parse segments file: %w", err)
	}
	fmt.Printf("Read %d segments from %s\n", len(segments), args[0])

	// 2. Build chunks
	doc, chunks, err := chunk.NewBuilder().Build(segments)
	if err != nil {
		return fmt.Errorf("failed to build chunks: %w", err)
	}
	fmt.Printf("Built %d chunks for document %s (%s)\n", len(chunks), doc.ID, doc.Filename)

	// 3. Connect to Postgres
	fmt.Println()
	relStore, err := relstore.Connect(ctx, relstore.ConnectionParams{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvInt("POSTGRES_PORT", 5432),
		User:     getEnv("POSTGRES_USER", "postgres"),
		Password: getEnv("POSTGRES_PASSWORD", "postgres"),
		DBName:   getEnv("POSTGRES_DB", "docchat"),
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	defer relStore.Close()
	fmt.Println("Postgres connected")

	// 4. Connect to Qdrant
	qdrantHost := getEnv("QDRANT_HOST", "localhost")
	qdrantPort := getEnvInt("QDRANT_PORT", 6334)
	vecStore, err := vecstore.NewStore(qdrantHost, qdrantPort, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vecStore.Close()
	fmt.Println("Qdrant connected")

	// 5. Initialize embedding client
	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0) // Use default batch size

	// 6. Run the dual-store ingestion
	fmt.Println()
	fmt.Println("Ingesting...")
	coordinator := ingest.NewCoordinator(relStore, vecStore, embedder, slog.Default())
	result, err := coordinator.Ingest(ctx, doc, chunks)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	// 7. Print results
	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Document: %s\n", result.DocID)
	fmt.Printf("  Chunks: %d\n", result.ChunksTotal)
	fmt.Printf("  Postgres rows inserted: %d\n", result.RelInserted)
	fmt.Printf("  Qdrant points upserted: %d (skipped: %d)\n", result.VecUpserted, result.VecSkipped)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.Failures) > 0 {
		fmt.Println()
		fmt.Println("Failures:")
		for _, failure := range result.Failures {
			fmt.Printf("  - %s\n", failure)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Millisecond))

	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
