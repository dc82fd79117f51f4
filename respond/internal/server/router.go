// Package server provides HTTP server setup for the respond service.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelvnc/sentinel/common/middleware"
	"github.com/sentinelvnc/sentinel/respond/internal/handlers"
)

// NewRouter constructs a ServeMux with respond routes registered.
func NewRouter(h *handlers.Handler, apiKey string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.Health)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/incoming-incident", h.IncomingIncident)

	var handler http.Handler = mux
	handler = middleware.ServiceAuth(apiKey, "/health", "/metrics")(handler)
	handler = middleware.CORS(middleware.DefaultCORSConfig())(handler)
	return middleware.RequestID(handler)
}
