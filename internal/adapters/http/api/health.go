package api

import (
	"net/http"

	"github.com/okian/rollcall/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler answers liveness probes with the service's Prometheus exposition.
type HealthHandler struct {
	metrics http.Handler
}

// NewHealthHandler creates a health handler over the rollcall registry.
func NewHealthHandler() *HealthHandler {
	return newHealthHandler(metrics.GetRegistry())
}

func newHealthHandler(g prometheus.Gatherer) *HealthHandler {
	return &HealthHandler{
		metrics: promhttp.HandlerFor(g, promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	h.metrics.ServeHTTP(w, r)
}
