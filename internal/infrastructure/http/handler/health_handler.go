package handler

import (
	"net/http"

	"github.com/mrops-br/products-catalog-api/internal/infrastructure/http/response"
)

// ReadinessChecker reports whether a dependency can serve traffic
type ReadinessChecker interface {
	Ready() bool
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	broker ReadinessChecker
}

// NewHealthHandler creates a health handler whose readiness follows broker
func NewHealthHandler(broker ReadinessChecker) *HealthHandler {
	return &HealthHandler{broker: broker}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Ready handles GET /ready. It fails while the broker is not connected.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil || !h.broker.Ready() {
		response.ProblemDetail(w, r, http.StatusServiceUnavailable, "Message broker is not connected")
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
