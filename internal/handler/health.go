package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/coursemind/coursemind/internal/models"
)

const version = "1.0.0"

// HealthChecker is implemented by collaborators that can report connectivity.
type HealthChecker interface {
	TestConnection(ctx context.Context) error
}

// HealthHandler handles GET /health with per-dependency checks.
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler takes named dependency checkers; a nil checker is reported
// as disabled.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	results := map[string]string{"server": "ok"}
	status := "healthy"

	// Short timeout so a slow dependency doesn't hang the probe.
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for name, checker := range h.checks {
		if checker == nil {
			results[name] = "disabled"
			continue
		}
		if err := checker.TestConnection(ctx); err != nil {
			results[name] = "unavailable: " + err.Error()
			status = "degraded"
		} else {
			results[name] = "ok"
		}
	}

	models.WriteJSON(w, http.StatusOK, models.HealthResponse{
		Status:  status,
		Version: version,
		Checks:  results,
	})
}
