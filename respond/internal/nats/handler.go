// Package nats consumes incidents published by the risk engine.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sentinelvnc/sentinel/common/logging"
	"github.com/sentinelvnc/sentinel/common/messaging"
	"github.com/sentinelvnc/sentinel/common/middleware"
	"github.com/sentinelvnc/sentinel/respond/internal/metrics"
	"github.com/sentinelvnc/sentinel/respond/internal/models"
)

// Submitter schedules the response to an incident.
type Submitter interface {
	Submit(ctx context.Context, inc models.Incident)
}

// Handler processes incoming NATS messages for the respond service.
type Handler struct {
	sub    messaging.Subscriber
	svc    Submitter
	logger *slog.Logger
	subs   []messaging.Subscription
}

// NewHandler creates a new NATS message handler.
func NewHandler(sub messaging.Subscriber, svc Submitter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sub: sub, svc: svc, logger: logger}
}

// Start joins the respond worker queue for created incidents.
func (h *Handler) Start() error {
	sub, err := h.sub.QueueSubscribe(
		messaging.SubjectIncidentsCreated,
		messaging.QueueRespondWorkers,
		h.handleIncident,
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to incidents: %w", err)
	}
	h.subs = append(h.subs, sub)

	h.logger.Info("NATS handler started",
		slog.String("subject", messaging.SubjectIncidentsCreated),
		slog.String("queue", messaging.QueueRespondWorkers))
	return nil
}

// Stop unsubscribes from all subjects.
func (h *Handler) Stop() error {
	for _, sub := range h.subs {
		if err := sub.Unsubscribe(); err != nil {
			h.logger.Warn("failed to unsubscribe",
				slog.String("subject", sub.Subject()),
				logging.Error(err))
		}
	}
	h.subs = nil
	h.logger.Info("NATS handler stopped")
	return nil
}

func (h *Handler) handleIncident(ctx context.Context, msg *messaging.Message) error {
	var inc models.Incident
	if err := json.Unmarshal(msg.Data, &inc); err != nil {
		h.logger.Warn("failed to unmarshal incident", logging.Error(err))
		return err
	}
	if err := inc.Validate(); err != nil {
		h.logger.Warn("discarding incident", logging.Error(err))
		return err
	}

	if id := msg.Metadata[middleware.RequestIDHeader]; id != "" {
		ctx = middleware.WithRequestID(ctx, id)
	}
	metrics.IncidentsReceived.WithLabelValues("nats").Inc()
	h.svc.Submit(ctx, inc)
	return nil
}
