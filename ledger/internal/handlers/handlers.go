// Package handlers serves the ledger gateway's anchor and verify endpoints.
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sentinelvnc/sentinel/common/httputil"
	"github.com/sentinelvnc/sentinel/common/logging"
	"github.com/sentinelvnc/sentinel/ledger/internal/metrics"
	"github.com/sentinelvnc/sentinel/ledger/internal/store"
)

// Log codes for gateway operations.
const (
	CodeAnchorStored  = "GW100"
	CodeVerifyMiss    = "GW200"
	CodeVerifyChecked = "GW201"
)

// AnchorRequest is the body of POST /api/anchor.
type AnchorRequest struct {
	IncidentID string `json:"incident_id"`
	MerkleRoot string `json:"merkle_root"`
	Timestamp  string `json:"timestamp"`
}

// AnchorResponse is returned after a root is stored.
type AnchorResponse struct {
	Status string `json:"status"`
	TxID   string `json:"tx_id"`
}

// VerifyRequest is the body of POST /api/verify.
type VerifyRequest struct {
	IncidentID string `json:"incident_id"`
	MerkleRoot string `json:"merkle_root"`
}

// VerifyResponse reports whether the root matches the anchored one.
type VerifyResponse struct {
	Valid  bool   `json:"valid"`
	Status string `json:"status"`
}

// Handler provides HTTP handlers for the ledger gateway.
type Handler struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewHandler creates a new Handler instance.
func NewHandler(s store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: s, logger: logger, now: time.Now}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, map[string]string{"status": status, "service": "ledger_gateway"})
}

// Anchor handles POST /api/anchor.
func (h *Handler) Anchor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req AnchorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.IncidentID) == "" || strings.TrimSpace(req.MerkleRoot) == "" {
		httputil.WriteError(w, http.StatusBadRequest, "incident_id and merkle_root are required")
		return
	}

	txID := fmt.Sprintf("local-%d-%s", h.now().UnixMilli(), req.IncidentID)
	rec := store.Record{MerkleRoot: req.MerkleRoot, Timestamp: req.Timestamp, TxID: txID}
	if err := h.store.Put(r.Context(), req.IncidentID, rec); err != nil {
		metrics.AnchorsTotal.WithLabelValues("error").Inc()
		h.logger.ErrorContext(r.Context(), "failed to store anchor",
			logging.IncidentID(req.IncidentID), logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to store anchor")
		return
	}

	metrics.AnchorsTotal.WithLabelValues("stored").Inc()
	h.logger.InfoContext(r.Context(), "anchor stored",
		logging.Code(CodeAnchorStored),
		logging.IncidentID(req.IncidentID),
		logging.MerkleRoot(req.MerkleRoot),
		logging.TxID(txID))
	httputil.WriteJSON(w, http.StatusOK, AnchorResponse{Status: "anchored", TxID: txID})
}

// Verify handles POST /api/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req VerifyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	rec, ok, err := h.store.Get(r.Context(), req.IncidentID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read anchor",
			logging.IncidentID(req.IncidentID), logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to read anchor")
		return
	}
	if !ok {
		metrics.VerifyTotal.WithLabelValues("not_found").Inc()
		h.logger.InfoContext(r.Context(), "verify miss",
			logging.Code(CodeVerifyMiss), logging.IncidentID(req.IncidentID))
		httputil.WriteJSON(w, http.StatusOK, VerifyResponse{Valid: false, Status: "not_found"})
		return
	}

	valid := rec.MerkleRoot == req.MerkleRoot
	status := "anchored"
	if !valid {
		status = "mismatch"
	}
	metrics.VerifyTotal.WithLabelValues(status).Inc()
	h.logger.InfoContext(r.Context(), "verify checked",
		logging.Code(CodeVerifyChecked),
		logging.IncidentID(req.IncidentID),
		logging.MerkleRoot(req.MerkleRoot),
		slog.Bool("valid", valid))
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{Valid: valid, Status: status})
}
