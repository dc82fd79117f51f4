// Package handlers provides HTTP request handlers for the respond service.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sentinelvnc/sentinel/common/httputil"
	"github.com/sentinelvnc/sentinel/common/logging"
	"github.com/sentinelvnc/sentinel/common/messaging"
	"github.com/sentinelvnc/sentinel/respond/internal/metrics"
	"github.com/sentinelvnc/sentinel/respond/internal/models"
)

// Submitter schedules the response to an incident.
type Submitter interface {
	Submit(ctx context.Context, inc models.Incident)
}

// Handler provides HTTP handlers for the respond service.
type Handler struct {
	svc    Submitter
	broker messaging.Client
	logger *slog.Logger
}

// NewHandler creates a new Handler instance. broker may be nil when NATS
// intake is disabled.
func NewHandler(svc Submitter, broker messaging.Client, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, broker: broker, logger: logger}
}

// Health handles GET /health. A disconnected broker reports "degraded";
// HTTP intake keeps working.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{Status: "ok", Service: "respond"}
	if h.broker != nil {
		nh := messaging.CheckClientHealth(h.broker)
		resp.NATS = &nh
		if !nh.Connected {
			resp.Status = "degraded"
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// IncomingIncident handles POST /incoming-incident. The response is sent
// before any action runs.
func (h *Handler) IncomingIncident(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}

	var inc models.Incident
	if err := httputil.DecodeJSON(r, &inc); err != nil {
		httputil.WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := inc.Validate(); err != nil {
		httputil.WriteErrorDetail(w, http.StatusBadRequest, "invalid incident", err.Error())
		return
	}

	metrics.IncidentsReceived.WithLabelValues("http").Inc()
	h.logger.InfoContext(r.Context(), "incident received",
		logging.IncidentID(inc.IncidentID),
		logging.SessionID(inc.SessionID),
		slog.String("recommended_action", inc.RecommendedAction))

	h.svc.Submit(r.Context(), inc)
	httputil.WriteJSON(w, http.StatusOK, models.StatusResponse{Status: "ok"})
}
