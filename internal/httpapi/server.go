// Package httpapi exposes the chat and embedding pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/horizon-ai/docchat/internal/chunk"
	"github.com/horizon-ai/docchat/internal/embedding"
	"github.com/horizon-ai/docchat/internal/session"
)

// DefaultTopK is the number of retrieved chunks when a request omits top_k.
const DefaultTopK = 7

// Answerer generates a reply for one user question. The chat orchestrator
// satisfies it.
type Answerer interface {
	Answer(ctx context.Context, question, userID string, topK int) string
}

// Embedder is the embedding surface the API exposes directly.
type Embedder interface {
	Info() embedding.ModelInfo
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	EmbedChunks(ctx context.Context, chunks []chunk.Chunk) ([]chunk.Chunk, error)
}

// Server holds the handlers' shared dependencies.
type Server struct {
	answerer Answerer
	embedder Embedder
	sessions *session.Store
	health   map[string]HealthChecker
	logger   *slog.Logger
}

// Config wires a Server. HealthChecks maps dependency names (shown in the
// /health payload) to their probes.
type Config struct {
	Answerer     Answerer
	Embedder     Embedder
	Sessions     *session.Store
	HealthChecks map[string]HealthChecker
	Logger       *slog.Logger
}

// NewServer creates the API server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		answerer: cfg.Answerer,
		embedder: cfg.Embedder,
		sessions: cfg.Sessions,
		health:   cfg.HealthChecks,
		logger:   logger,
	}
}

// Routes returns the service mux with every endpoint mounted.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /answer", s.handleAnswer)
	mux.HandleFunc("POST /embed", s.handleEmbed)
	mux.HandleFunc("POST /embed-batch", s.handleEmbedBatch)
	mux.HandleFunc("POST /embed-chunks", s.handleEmbedChunks)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /model-info", s.handleModelInfo)
	mux.HandleFunc("GET /sessions", s.handleSessions)
	return mux
}

type answerRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id"`
	TopK     int    `json:"top_k"`
}

type answerResponse struct {
	Answer string `json:"answer"`
	UserID string `json:"user_id"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	// An anonymous caller gets a fresh session for this conversation.
	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}
	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}

	answer := s.answerer.Answer(r.Context(), req.Question, req.UserID, req.TopK)
	writeJSON(w, http.StatusOK, answerResponse{Answer: answer, UserID: req.UserID})
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	vector, err := s.embedder.EmbedQuery(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("embed failed", "error", err)
		writeError(w, http.StatusBadGateway, "embedding generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]float32{"embedding": vector})
}

func (s *Server) handleEmbedBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Texts []string `json:"texts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Texts) == 0 {
		writeError(w, http.StatusBadRequest, "texts is required")
		return
	}

	vectors, err := s.embedder.GenerateEmbeddings(r.Context(), req.Texts)
	if err != nil {
		s.logger.Error("embed batch failed", "error", err)
		writeError(w, http.StatusBadGateway, "embedding generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string][][]float32{"embeddings": vectors})
}

func (s *Server) handleEmbedChunks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Chunks []chunk.Chunk `json:"chunks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Chunks) == 0 {
		writeError(w, http.StatusBadRequest, "chunks is required")
		return
	}

	embedded, err := s.embedder.EmbedChunks(r.Context(), req.Chunks)
	if err != nil {
		s.logger.Error("embed chunks failed", "error", err)
		writeError(w, http.StatusBadGateway, "embedding generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]chunk.Chunk{"chunks": embedded})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.embedder.Info())
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
