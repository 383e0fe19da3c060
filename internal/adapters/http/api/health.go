package api

import (
	"net/http"

	service "github.com/okian/kiosk/internal/app"
	"github.com/okian/kiosk/pkg/logger"
)

// HealthCheck is the outcome of one named check.
type HealthCheck struct {
	Status string `json:"status" enum:"ok,loading,error"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse maps check names to outcomes.
type HealthResponse map[string]HealthCheck

// handleHealth reports 503 until the catalog is installed and while the
// coordinator is not running. An empty catalog is healthy: the kiosk runs,
// it just has nothing to show.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	view := s.coord.Snapshot()
	checks := HealthResponse{
		"catalog":     {Status: "ok"},
		"coordinator": {Status: "ok"},
	}
	status := http.StatusOK

	switch view.Phase {
	case service.PhaseLoading:
		checks["catalog"] = HealthCheck{Status: "loading"}
		status = http.StatusServiceUnavailable
	case service.PhaseFailed:
		checks["catalog"] = HealthCheck{Status: "error", Detail: view.Error}
		status = http.StatusServiceUnavailable
	default:
		if view.Empty() {
			checks["catalog"] = HealthCheck{Status: "ok", Detail: "empty"}
		}
	}

	if running, _ := s.coord.GetStats()["started"].(bool); !running {
		checks["coordinator"] = HealthCheck{Status: "error", Detail: "not running"}
		status = http.StatusServiceUnavailable
	}

	if status != http.StatusOK {
		s.logger.Debug(r.Context(), "health check failed",
			logger.String("phase", string(view.Phase)),
		)
	}
	writeJSON(w, status, checks)
}
