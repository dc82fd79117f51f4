// Package server assembles the risk engine's HTTP routes.
package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelvnc/sentinel/common/middleware"
	"github.com/sentinelvnc/sentinel/riskengine/internal/handlers"
)

// NewRouter constructs a ServeMux with the risk engine routes registered.
// apiKey guards every route except /health and /metrics; empty disables it.
func NewRouter(h *handlers.Handler, apiKey string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.Health)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/detector-events", h.DetectorEvents)
	mux.HandleFunc("/incidents", h.Incidents)
	mux.HandleFunc("/incidents/", incidentRouteHandler(h))

	var handler http.Handler = mux
	handler = middleware.ServiceAuth(apiKey, "/health", "/metrics")(handler)
	handler = middleware.CORS(middleware.DefaultCORSConfig())(handler)
	return middleware.RequestID(handler)
}

// incidentRouteHandler routes /incidents/* requests.
func incidentRouteHandler(h *handlers.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimSuffix(r.URL.Path, "/")

		switch {
		case path == "/incidents":
			h.Incidents(w, r)
		case path == "/incidents/acknowledge":
			h.Acknowledge(w, r)
		case strings.HasSuffix(path, "/explanation"):
			h.Explanation(w, r)
		default:
			h.Incident(w, r)
		}
	}
}
