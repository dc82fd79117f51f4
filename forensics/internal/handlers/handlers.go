// Package handlers provides HTTP request handlers for the forensics service.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sentinelvnc/sentinel/common/httputil"
	"github.com/sentinelvnc/sentinel/common/logging"
	"github.com/sentinelvnc/sentinel/forensics/internal/service"
	"github.com/sentinelvnc/sentinel/forensics/pkg/manifest"
	"github.com/sentinelvnc/sentinel/forensics/pkg/models"
)

// Handler provides HTTP handlers for the forensics service.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewHandler creates a new Handler instance.
func NewHandler(svc *service.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Service: "forensics"})
}

// Start handles POST /forensics/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req models.StartRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	resp, err := h.svc.StartForensics(r.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidRequest) {
			httputil.WriteErrorDetail(w, http.StatusBadRequest, "invalid forensics request", err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "forensics capture failed",
			logging.IncidentID(req.IncidentID), logging.Error(err))
		httputil.WriteErrorDetail(w, http.StatusInternalServerError, "forensics capture failed", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Anchor handles POST /forensics/anchor.
func (h *Handler) Anchor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req models.AnchorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	resp, err := h.svc.AnchorAndVerify(r.Context(), req)
	switch {
	case err == nil:
		httputil.WriteJSON(w, http.StatusOK, resp)
	case errors.Is(err, models.ErrInvalidRequest):
		httputil.WriteErrorDetail(w, http.StatusBadRequest, "invalid anchor request", err.Error())
	case errors.Is(err, manifest.ErrManifestNotFound):
		httputil.WriteErrorDetail(w, http.StatusNotFound, "manifest not found", err.Error())
	case errors.Is(err, service.ErrRootMismatch):
		httputil.WriteErrorDetail(w, http.StatusBadRequest, "merkle root mismatch", err.Error())
	case errors.Is(err, service.ErrVerificationFailed):
		httputil.WriteErrorDetail(w, http.StatusUnprocessableEntity, "ledger verification failed", err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "forensics anchor failed",
			logging.IncidentID(req.IncidentID), logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "forensics anchor failed")
	}
}

// Status handles GET /forensics/{incident_id}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	id := strings.TrimPrefix(strings.TrimSuffix(r.URL.Path, "/"), "/forensics/")
	if id == "" || strings.Contains(id, "/") {
		httputil.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	status, err := h.svc.Status(r.Context(), id)
	if errors.Is(err, manifest.ErrManifestNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "manifest not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read capture status",
			logging.IncidentID(id), logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to read capture status")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}
