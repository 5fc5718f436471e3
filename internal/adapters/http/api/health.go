package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/kunstquiz/pkg/metrics"
)

// HandleHealth serves GET /healthz as the Prometheus exposition of the
// service registry.
func HandleHealth() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
