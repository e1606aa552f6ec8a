// Package main provides the document chat service entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/horizon-ai/docchat/internal/chat"
	"github.com/horizon-ai/docchat/internal/embedding"
	"github.com/horizon-ai/docchat/internal/httpapi"
	"github.com/horizon-ai/docchat/internal/llm"
	"github.com/horizon-ai/docchat/internal/relstore"
	"github.com/horizon-ai/docchat/internal/retrieval"
	"github.com/horizon-ai/docchat/internal/session"
	"github.com/horizon-ai/docchat/internal/vecstore"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Relational store
	relStore, err := relstore.Connect(ctx, relstore.ConnectionParams{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvInt("POSTGRES_PORT", 5432),
		User:     getEnv("POSTGRES_USER", "postgres"),
		Password: getEnv("POSTGRES_PASSWORD", "postgres"),
		DBName:   getEnv("POSTGRES_DB", "docchat"),
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	})
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	defer relStore.Close()

	if err := relStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to ensure Postgres schema: %v", err)
	}

	// Vector store
	vecStore, err := vecstore.NewStore(getEnv("QDRANT_HOST", "localhost"), getEnvInt("QDRANT_PORT", 6334), logger)
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}
	defer vecStore.Close()

	if err := vecStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to ensure Qdrant collections: %v", err)
	}

	// OpenAI clients: the embedder and the chat model share one connection.
	embeddingClient, err := embedding.NewClient()
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0) // Use default batch size

	chatModel := llm.NewClient(
		embeddingClient.Client(),
		getEnv("OPENAI_MODEL", llm.DefaultModel),
		getEnvFloat("OPENAI_TEMPERATURE", llm.DefaultTemperature),
	)

	// Session store with background TTL/LRU sweeping
	sessions := session.NewStore(session.Config{
		TTL:           time.Duration(getEnvInt("SESSION_TTL_SECONDS", 3600)) * time.Second,
		MaxSessions:   getEnvInt("SESSION_MAX_COUNT", 1000),
		SweepInterval: time.Duration(getEnvInt("SESSION_SWEEP_SECONDS", 300)) * time.Second,
		TokenBudget:   getEnvInt("SESSION_TOKEN_BUDGET", session.DefaultTokenBudget),
	}, chatModel, nil, logger)
	go sessions.Run(ctx)

	// Answer pipeline
	dates, err := chat.NewDateAgent(getEnv("DEFAULT_TIMEZONE", chat.DefaultTimezone), nil)
	if err != nil {
		log.Fatalf("failed to create date agent: %v", err)
	}
	engine := retrieval.NewEngine(vecStore, embedder, logger)
	orchestrator := chat.NewOrchestrator(chatModel, engine, sessions, dates, logger)

	// HTTP surface
	api := httpapi.NewServer(httpapi.Config{
		Answerer: orchestrator,
		Embedder: embedder,
		Sessions: sessions,
		HealthChecks: map[string]httpapi.HealthChecker{
			"postgres":        relStore,
			"qdrant":          vecStore,
			"embedding_model": embedder,
		},
		Logger: logger,
	})

	addr := "0.0.0.0:" + getEnv("PORT", "8080")
	server := &http.Server{
		Addr:    addr,
		Handler: api.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("Starting HTTP server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
