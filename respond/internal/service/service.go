// Package service dispatches response actions for incoming incidents and
// requests forensic capture.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sentinelvnc/sentinel/common/logging"
	fmodels "github.com/sentinelvnc/sentinel/forensics/pkg/models"
	"github.com/sentinelvnc/sentinel/respond/internal/metrics"
	"github.com/sentinelvnc/sentinel/respond/internal/models"
)

// Proxy is the VNC proxy's admin surface.
type Proxy interface {
	ActivateDeception(ctx context.Context, sessionID string) error
	KillSession(ctx context.Context, sessionID string) error
}

// Forensics requests evidence capture.
type Forensics interface {
	Start(ctx context.Context, req fmodels.StartRequest) (*fmodels.StartResponse, error)
}

// Service runs the response for each incident in the background.
type Service struct {
	proxy     Proxy
	forensics Forensics
	timeout   time.Duration
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewService creates a new Service. timeout bounds one incident's action
// plus its forensics request.
func NewService(proxy Proxy, forensics Forensics, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		proxy:     proxy,
		forensics: forensics,
		timeout:   timeout,
		logger:    logger.With(slog.String(logging.FieldComponent, "dispatcher")),
	}
}

// Submit schedules inc and returns immediately. The work outlives ctx's
// cancellation but keeps its values.
func (s *Service) Submit(ctx context.Context, inc models.Incident) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		if err := s.Handle(runCtx, inc); err != nil {
			s.logger.Warn("incident response incomplete",
				logging.IncidentID(inc.IncidentID),
				logging.Error(err))
		}
	}()
}

// Wait blocks until every submitted incident has been handled.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Handle applies the recommended action and then requests forensics. A
// failed action is logged and does not prevent the capture.
func (s *Service) Handle(ctx context.Context, inc models.Incident) error {
	log := s.logger.With(logging.IncidentID(inc.IncidentID), logging.SessionID(inc.SessionID))

	s.applyAction(ctx, log, inc)

	req := s.StartRequest(inc)
	resp, err := s.forensics.Start(ctx, req)
	if err != nil {
		metrics.ForensicsTriggers.WithLabelValues("error").Inc()
		return fmt.Errorf("forensics start: %w", err)
	}
	metrics.ForensicsTriggers.WithLabelValues("ok").Inc()
	log.Info("forensics captured",
		slog.Int("artifact_count", resp.ArtifactCount),
		logging.MerkleRoot(resp.MerkleRoot))
	return nil
}

func (s *Service) applyAction(ctx context.Context, log *slog.Logger, inc models.Incident) {
	action := strings.ToLower(strings.TrimSpace(inc.RecommendedAction))

	var err error
	switch action {
	case models.ActionAllow:
		log.Info("incident allowed, no proxy action", slog.String("risk_level", inc.RiskLevel))
		metrics.ActionsTotal.WithLabelValues(models.ActionAllow, "ok").Inc()
		return
	case models.ActionDeceive, models.ActionDeceptionMode:
		action = models.ActionDeceive
		err = s.proxy.ActivateDeception(ctx, inc.SessionID)
	case models.ActionKill:
		err = s.proxy.KillSession(ctx, inc.SessionID)
	default:
		log.Warn("unknown recommended action, skipping", slog.String("action", inc.RecommendedAction))
		metrics.ActionsTotal.WithLabelValues("unknown", "skipped").Inc()
		return
	}

	if err != nil {
		log.Warn("proxy action failed", slog.String("action", action), logging.Error(err))
		metrics.ActionsTotal.WithLabelValues(action, "error").Inc()
		return
	}
	log.Info("proxy action applied", slog.String("action", action))
	metrics.ActionsTotal.WithLabelValues(action, "ok").Inc()
}

// StartRequest converts inc into a capture request. Refs that do not parse
// as type/source[/ref] are dropped; an empty list lets the orchestrator
// apply its defaults.
func (s *Service) StartRequest(inc models.Incident) fmodels.StartRequest {
	refs := make([]fmodels.ArtifactRef, 0, len(inc.ArtifactRefs))
	for _, raw := range inc.ArtifactRefs {
		ref, err := fmodels.ParseArtifactRef(raw)
		if err != nil {
			s.logger.Warn("dropping artifact ref",
				logging.IncidentID(inc.IncidentID),
				slog.String("ref", raw),
				logging.Error(err))
			continue
		}
		refs = append(refs, ref)
	}
	return fmodels.StartRequest{
		IncidentID:   inc.IncidentID,
		SessionID:    inc.SessionID,
		ArtifactRefs: refs,
		Meta: map[string]interface{}{
			"triggered_by":       "respond",
			"risk_level":         inc.RiskLevel,
			"recommended_action": inc.RecommendedAction,
		},
	}
}
