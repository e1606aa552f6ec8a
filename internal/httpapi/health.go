package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// healthTimeout bounds the combined dependency probes for one request.
const healthTimeout = 3 * time.Second

// HealthChecker is the probe each dependency exposes. The relational store,
// vector store, and embedder all implement it via their Health methods.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthResponse is the /health payload: overall status plus a
// connected/disconnected entry per dependency.
type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
	Timestamp    string            `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	response := HealthResponse{
		Status:       "healthy",
		Dependencies: make(map[string]string, len(s.health)),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}

	// Probe in a stable order so failure logs read consistently.
	names := make([]string, 0, len(s.health))
	for name := range s.health {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.health[name].Health(ctx); err != nil {
			s.logger.Warn("health check failed", "dependency", name, "error", err)
			response.Dependencies[name] = "disconnected"
			response.Status = "unhealthy"
			continue
		}
		response.Dependencies[name] = "connected"
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}
