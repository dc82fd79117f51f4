// Package server assembles the ledger gateway's HTTP routes.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelvnc/sentinel/common/middleware"
	"github.com/sentinelvnc/sentinel/ledger/internal/handlers"
)

// NewRouter constructs a ServeMux with the gateway routes registered.
// apiKey guards /api/*; empty disables the check.
func NewRouter(h *handlers.Handler, apiKey string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.Health)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/anchor", h.Anchor)
	mux.HandleFunc("/api/verify", h.Verify)

	var handler http.Handler = mux
	handler = middleware.ServiceAuth(apiKey, "/health", "/metrics")(handler)
	handler = middleware.CORS(middleware.DefaultCORSConfig())(handler)
	return middleware.RequestID(handler)
}
