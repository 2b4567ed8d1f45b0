package server

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports backend reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// HealthHandler reports service health gated on the persistence gateway.
type HealthHandler struct {
	pinger Pinger
}

// NewHealthHandler creates a HealthHandler over the given pinger.
func NewHealthHandler(pinger Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// Routes returns the path patterns this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"/health"}
}

// ServeHTTP answers 200 when the gateway is reachable, 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed for this path")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := HealthResponse{
		Status:    "healthy",
		Service:   "collector",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.pinger.Ping(ctx); err != nil {
		body.Status = "unhealthy"
		body.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}

	writeJSON(w, http.StatusOK, body)
}
