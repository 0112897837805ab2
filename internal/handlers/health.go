package handlers

import (
	"net/http"
	"time"

	"github.com/arjenou/5000React/internal/transport"
)

type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Timestamp:   s.now().UTC().Format(time.RFC3339Nano),
		Environment: s.Env,
	})
}

// NotFound answers unmatched routes and method mismatches alike.
func NotFound(w http.ResponseWriter, r *http.Request) {
	transport.WriteError(w, http.StatusNotFound, "endpoint not found", nil)
}
