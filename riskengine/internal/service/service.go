// Package service implements incident correlation and the incident lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelvnc/sentinel/riskengine/internal/metrics"
	"github.com/sentinelvnc/sentinel/riskengine/internal/models"
	"github.com/sentinelvnc/sentinel/riskengine/internal/repository"
	"github.com/sentinelvnc/sentinel/riskengine/internal/scoring"
	"github.com/sentinelvnc/sentinel/riskengine/internal/window"
)

// IncidentPublisher receives every incident once it is stored.
type IncidentPublisher interface {
	Publish(incident *models.Incident) bool
}

// Service wires the window store, scorer, registry and publisher.
type Service struct {
	window    *window.Store
	scorer    *scoring.Scorer
	repo      repository.Repository
	publisher IncidentPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service. publisher may be nil.
func NewService(store *window.Store, scorer *scoring.Scorer, repo repository.Repository, publisher IncidentPublisher, opts ...Option) *Service {
	s := &Service{
		window:    store,
		scorer:    scorer,
		repo:      repo,
		publisher: publisher,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "incidents"))
	return s
}

// IngestEvent records ev in its session window and runs one correlation pass.
func (s *Service) IngestEvent(ctx context.Context, ev models.DetectorEvent) (*models.IngestResponse, error) {
	ev.Normalize()
	events := s.window.RecordAndSnapshot(ev, s.now())
	metrics.EventsTotal.WithLabelValues(string(ev.Source), "accepted").Inc()
	metrics.ActiveSessions.Set(float64(s.window.Sessions()))

	incident, err := s.createIncident(ctx, ev.SessionID, events)
	if err != nil {
		return nil, err
	}
	return &models.IngestResponse{
		Status:          "ok",
		IncidentCreated: incident != nil,
		Incident:        incident,
	}, nil
}

// Correlate evicts stale events for sessionID and, if any remain, creates
// exactly one incident from them. It returns nil when the window is empty.
func (s *Service) Correlate(ctx context.Context, sessionID string, now time.Time) (*models.Incident, error) {
	events := s.window.EvictAndSnapshot(sessionID, now)
	metrics.ActiveSessions.Set(float64(s.window.Sessions()))
	return s.createIncident(ctx, sessionID, events)
}

func (s *Service) createIncident(ctx context.Context, sessionID string, events []models.DetectorEvent) (*models.Incident, error) {
	if len(events) == 0 {
		return nil, nil
	}

	score, level, action := s.scorer.Assess(events)
	incident := &models.Incident{
		IncidentID:        uuid.NewString(),
		SessionID:         sessionID,
		RiskScore:         score,
		RiskLevel:         level,
		Events:            events,
		RecommendedAction: action,
		ArtifactRefs:      collectArtifactRefs(events),
		CreatedAt:         s.now(),
	}

	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("store incident: %w", err)
	}

	metrics.IncidentsTotal.WithLabelValues(string(level)).Inc()
	metrics.RiskScore.Observe(float64(score))
	s.logger.InfoContext(ctx, "created incident",
		slog.String("incident_id", incident.IncidentID),
		slog.String("session_id", sessionID),
		slog.Int("risk_score", score),
		slog.String("risk_level", string(level)),
		slog.String("recommended_action", string(action)),
		slog.Int("events", len(events)))

	if s.publisher != nil {
		s.publisher.Publish(incident)
	}
	return incident, nil
}

// collectArtifactRefs returns the distinct artifact refs of events in
// first-seen order.
func collectArtifactRefs(events []models.DetectorEvent) []string {
	refs := []string{}
	seen := make(map[string]struct{})
	for _, ev := range events {
		for _, ref := range ev.ArtifactRefs {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}
	return refs
}

// GetIncident returns one incident.
func (s *Service) GetIncident(ctx context.Context, id string) (*models.Incident, error) {
	return s.repo.GetIncident(ctx, id)
}

// ListIncidents returns all incidents in creation order.
func (s *Service) ListIncidents(ctx context.Context) ([]*models.Incident, error) {
	return s.repo.ListIncidents(ctx)
}

// Explain attributes an incident's score to its event types using the
// weights loaded now, which may differ from those used at creation.
func (s *Service) Explain(ctx context.Context, id string) (*models.Explanation, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	exp := s.scorer.Explain(incident.Events)
	return &exp, nil
}

var ErrMissingIncidentID = errors.New("incident_id is required")

// Acknowledge logs and records an operator acknowledgement.
func (s *Service) Acknowledge(ctx context.Context, req *models.AcknowledgeRequest) error {
	if strings.TrimSpace(req.IncidentID) == "" {
		return ErrMissingIncidentID
	}

	ack := &models.Acknowledgement{
		IncidentID:     req.IncidentID,
		AcknowledgedBy: "unknown",
		At:             s.now(),
	}
	if req.AcknowledgedBy != nil && *req.AcknowledgedBy != "" {
		ack.AcknowledgedBy = *req.AcknowledgedBy
	}
	if req.Note != nil {
		ack.Note = *req.Note
	}

	if err := s.repo.RecordAcknowledgement(ctx, ack); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "incident acknowledged",
		slog.String("incident_id", ack.IncidentID),
		slog.String("acknowledged_by", ack.AcknowledgedBy),
		slog.String("note", ack.Note))
	return nil
}
