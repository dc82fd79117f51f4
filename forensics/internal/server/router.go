// Package server assembles the forensics service's HTTP routes.
package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelvnc/sentinel/common/middleware"
	"github.com/sentinelvnc/sentinel/forensics/internal/handlers"
)

// NewRouter constructs a ServeMux with the forensics routes registered.
// apiKey guards every route except /health and /metrics; empty disables it.
func NewRouter(h *handlers.Handler, apiKey string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.Health)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/forensics/", forensicsRouteHandler(h))

	var handler http.Handler = mux
	handler = middleware.ServiceAuth(apiKey, "/health", "/metrics")(handler)
	handler = middleware.CORS(middleware.DefaultCORSConfig())(handler)
	return middleware.RequestID(handler)
}

// forensicsRouteHandler routes /forensics/* requests. GET always means a
// status lookup, so incidents named "start" or "anchor" stay reachable.
func forensicsRouteHandler(h *handlers.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Status(w, r)
			return
		}
		switch strings.TrimSuffix(r.URL.Path, "/") {
		case "/forensics/start":
			h.Start(w, r)
		case "/forensics/anchor":
			h.Anchor(w, r)
		default:
			h.Status(w, r)
		}
	}
}
