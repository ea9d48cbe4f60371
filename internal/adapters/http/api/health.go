package api

import (
	"net/http"

	"github.com/okian/rigmatch/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type healthResponse struct {
	Status          string `json:"status"`
	ModelLoaded     bool   `json:"model_loaded"`
	Components      int    `json:"components_loaded"`
	SnapshotVersion string `json:"version,omitempty"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	stats StatsProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(stats StatsProvider) *HealthHandler {
	return &HealthHandler{stats: stats}
}

// HandleHealth handles GET /healthz requests. The process is alive even
// without a model, so the status code stays 200 and the body says
// "untrained".
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	st := h.stats.GetStats()
	resp := healthResponse{
		Status:          "ok",
		ModelLoaded:     st.ModelLoaded,
		Components:      st.Components,
		SnapshotVersion: st.SnapshotVersion,
	}
	if !st.ModelLoaded {
		resp.Status = "untrained"
	}
	writeJSON(w, http.StatusOK, resp)
}

// MetricsHandler serves the custom Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
