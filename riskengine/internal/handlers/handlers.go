// Package handlers provides HTTP request handlers for the risk engine.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sentinelvnc/sentinel/common/httputil"
	"github.com/sentinelvnc/sentinel/riskengine/internal/models"
	"github.com/sentinelvnc/sentinel/riskengine/internal/repository"
	"github.com/sentinelvnc/sentinel/riskengine/internal/service"
)

// Handler provides HTTP handlers for the risk engine.
type Handler struct {
	svc    *service.Service
	repo   repository.Repository
	logger *slog.Logger
}

// NewHandler creates a new Handler instance.
func NewHandler(svc *service.Service, repo repository.Repository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, repo: repo, logger: logger}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, models.HealthResponse{Status: "degraded", Service: "risk_engine"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Service: "risk_engine"})
}

// DetectorEvents handles POST /detector-events.
func (h *Handler) DetectorEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}

	var ev models.DetectorEvent
	if err := httputil.DecodeJSON(r, &ev); err != nil {
		httputil.WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := ev.Validate(); err != nil {
		httputil.WriteErrorDetail(w, http.StatusBadRequest, "invalid detector event", err.Error())
		return
	}

	resp, err := h.svc.IngestEvent(r.Context(), ev)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to ingest detector event",
			slog.String("event_id", ev.EventID),
			slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to correlate event")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Incidents handles GET /incidents.
func (h *Handler) Incidents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	incidents, err := h.svc.ListIncidents(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list incidents", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list incidents")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, incidents)
}

// Incident handles GET /incidents/{id}.
func (h *Handler) Incident(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	id := httputil.ExtractIDFromPath(r.URL.Path, "/incidents")
	incident, err := h.svc.GetIncident(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, incident)
}

// Explanation handles GET /incidents/{id}/explanation.
func (h *Handler) Explanation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	id := httputil.ExtractIDFromPath(r.URL.Path, "/incidents")
	exp, err := h.svc.Explain(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, exp)
}

// Acknowledge handles POST /incidents/acknowledge.
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req models.AcknowledgeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.svc.Acknowledge(r.Context(), &req); err != nil {
		if errors.Is(err, service.ErrMissingIncidentID) {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeLookupError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.StatusResponse{Status: "ok"})
}

func (h *Handler) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repository.ErrIncidentNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "Incident not found")
		return
	}
	h.logger.ErrorContext(r.Context(), "incident lookup failed", slog.String("error", err.Error()))
	httputil.WriteError(w, http.StatusInternalServerError, "internal error")
}
