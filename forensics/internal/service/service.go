// Package service orchestrates forensic capture, anchoring and verification.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sentinelvnc/sentinel/common/logging"
	"github.com/sentinelvnc/sentinel/common/messaging"
	"github.com/sentinelvnc/sentinel/forensics/internal/metrics"
	"github.com/sentinelvnc/sentinel/forensics/pkg/anchor"
	"github.com/sentinelvnc/sentinel/forensics/pkg/models"
	"github.com/sentinelvnc/sentinel/forensics/pkg/storage"
)

var (
	// ErrRootMismatch means the supplied root differs from the stored manifest or sidecar.
	ErrRootMismatch = errors.New("merkle root does not match stored manifest")
	// ErrVerificationFailed means the ledger did not confirm the stored root.
	ErrVerificationFailed = errors.New("ledger verification failed")
)

// Log codes for capture and anchoring.
const (
	CodeCaptureCompleted = "FOR100"
	CodeAnchorVerified   = "FOR200"
)

// Collector gathers artifacts for a capture.
type Collector interface {
	Collect(ctx context.Context, incidentID, sessionID string, refs []models.ArtifactRef) ([]models.ArtifactInfo, string, error)
}

// ManifestStore persists manifests and their sidecars.
type ManifestStore interface {
	Write(m models.Manifest) error
	Read(incidentID string) (models.Manifest, error)
	ReadRoot(incidentID string) (string, error)
	WriteAnchorTx(incidentID, txID string) error
	ReadAnchorTx(incidentID string) (string, bool, error)
}

// Ledger anchors and verifies roots.
type Ledger interface {
	Anchor(ctx context.Context, incidentID, merkleRoot, timestamp string) anchor.Result
	Verify(ctx context.Context, incidentID, merkleRoot string) bool
}

// ManifestBuilder assembles a manifest from collected artifacts.
type ManifestBuilder func(incidentID, sessionID string, artifacts []models.ArtifactInfo, merkleRoot string, now time.Time) models.Manifest

// Service runs captures. Captures of one incident are serialized, different
// incidents proceed in parallel.
type Service struct {
	collector Collector
	manifests ManifestStore
	build     ManifestBuilder
	ledger    Ledger
	notifier  messaging.Publisher
	logger    *slog.Logger
	now       func() time.Time

	locks     *keyedMutex
	anchoring sync.Map // incident id -> struct{} while an anchor call is in flight
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

// WithNotifier publishes a capture summary on the broker after each capture.
func WithNotifier(p messaging.Publisher) Option {
	return func(s *Service) { s.notifier = p }
}

// NewService creates a Service.
func NewService(collector Collector, manifests ManifestStore, build ManifestBuilder, ledger Ledger, opts ...Option) *Service {
	s := &Service{
		collector: collector,
		manifests: manifests,
		build:     build,
		ledger:    ledger,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
		locks:     newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String(logging.FieldComponent, "orchestrator"))
	return s
}

// StartForensics collects evidence, writes the manifest, and makes one
// best-effort anchoring attempt. The anchor sidecar is always written; it is
// empty when anchoring failed or was skipped.
func (s *Service) StartForensics(ctx context.Context, req models.StartRequest) (*models.StartResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(storage.SafeSegment(req.IncidentID))
	defer unlock()

	start := time.Now()
	refs := req.ArtifactRefs
	if len(refs) == 0 {
		refs = models.DefaultRefs()
	}

	artifacts, root, err := s.collector.Collect(ctx, req.IncidentID, req.SessionID, refs)
	if err != nil {
		metrics.CapturesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("collect artifacts: %w", err)
	}

	m := s.build(req.IncidentID, req.SessionID, artifacts, root, s.now())
	if err := s.manifests.Write(m); err != nil {
		metrics.CapturesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	metrics.CapturesTotal.WithLabelValues("ok").Inc()
	metrics.CaptureDuration.Observe(time.Since(start).Seconds())
	s.logger.InfoContext(ctx, "forensics capture completed",
		logging.Code(CodeCaptureCompleted),
		logging.IncidentID(req.IncidentID),
		logging.SessionID(req.SessionID),
		slog.Int("artifact_count", len(artifacts)),
		logging.MerkleRoot(root))

	if _, err := s.anchor(ctx, req.IncidentID, root, m.Timestamp); err != nil {
		return nil, err
	}

	resp := &models.StartResponse{
		IncidentID:    req.IncidentID,
		SessionID:     req.SessionID,
		ArtifactCount: len(artifacts),
		MerkleRoot:    root,
	}
	s.notify(ctx, resp)
	return resp, nil
}

func (s *Service) notify(ctx context.Context, resp *models.StartResponse) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishJSON(ctx, messaging.SubjectForensicsCaptured, resp); err != nil {
		s.logger.WarnContext(ctx, "capture notification not published",
			logging.IncidentID(resp.IncidentID), logging.Error(err))
	}
}

// AnchorAndVerify checks the supplied root against the stored manifest, anchors
// it if no earlier attempt produced a tx id, and asks the ledger to confirm it.
// A mismatched root is rejected before any ledger call.
func (s *Service) AnchorAndVerify(ctx context.Context, req models.AnchorRequest) (*models.AnchorResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(storage.SafeSegment(req.IncidentID))
	defer unlock()

	m, err := s.manifests.Read(req.IncidentID)
	if err != nil {
		return nil, err
	}
	storedRoot, err := s.manifests.ReadRoot(req.IncidentID)
	if err != nil {
		return nil, err
	}
	if m.MerkleRoot != req.MerkleRoot || storedRoot != req.MerkleRoot {
		s.logger.WarnContext(ctx, "anchor request root mismatch",
			logging.IncidentID(req.IncidentID),
			logging.MerkleRoot(req.MerkleRoot),
			slog.String("stored_root", storedRoot))
		return nil, ErrRootMismatch
	}

	txID, _, err := s.manifests.ReadAnchorTx(req.IncidentID)
	if err != nil {
		return nil, err
	}
	if txID == "" {
		ts := req.Timestamp
		if ts == "" {
			ts = m.Timestamp
		}
		if txID, err = s.anchor(ctx, req.IncidentID, req.MerkleRoot, ts); err != nil {
			return nil, err
		}
	}

	if !s.ledger.Verify(ctx, req.IncidentID, req.MerkleRoot) {
		return nil, ErrVerificationFailed
	}

	s.logger.InfoContext(ctx, "forensics anchor verified",
		logging.Code(CodeAnchorVerified),
		logging.IncidentID(req.IncidentID),
		logging.MerkleRoot(req.MerkleRoot),
		logging.TxID(txID))

	return &models.AnchorResponse{
		Status:     "verified",
		IncidentID: req.IncidentID,
		MerkleRoot: req.MerkleRoot,
	}, nil
}

// Status reports the stored manifest and where the incident stands on the ledger.
func (s *Service) Status(ctx context.Context, incidentID string) (*models.CaptureStatus, error) {
	m, err := s.manifests.Read(incidentID)
	if err != nil {
		return nil, err
	}
	txID, attempted, err := s.manifests.ReadAnchorTx(incidentID)
	if err != nil {
		return nil, err
	}

	state := anchor.StateUnanchored
	switch {
	case s.anchorInFlight(incidentID):
		state = anchor.StateAnchorAttempted
	case txID != "":
		state = anchor.StateAnchored
	case attempted:
		state = anchor.StateAnchorFailed
	}

	return &models.CaptureStatus{
		IncidentID:  incidentID,
		AnchorState: string(state),
		TxID:        txID,
		Manifest:    m,
	}, nil
}

// anchor makes one attempt and records the result in the sidecar. Only a
// sidecar write failure is returned as an error.
func (s *Service) anchor(ctx context.Context, incidentID, root, timestamp string) (string, error) {
	key := storage.SafeSegment(incidentID)
	s.anchoring.Store(key, struct{}{})
	res := s.ledger.Anchor(ctx, incidentID, root, timestamp)
	s.anchoring.Delete(key)

	if res.State == anchor.StateAnchored {
		s.logger.InfoContext(ctx, "merkle root anchored", logging.IncidentID(incidentID), logging.TxID(res.TxID))
	} else {
		s.logger.WarnContext(ctx, "merkle root not anchored", logging.IncidentID(incidentID), slog.String("state", string(res.State)))
	}

	if err := s.manifests.WriteAnchorTx(incidentID, res.TxID); err != nil {
		return "", fmt.Errorf("write anchor sidecar: %w", err)
	}
	return res.TxID, nil
}

func (s *Service) anchorInFlight(incidentID string) bool {
	_, ok := s.anchoring.Load(storage.SafeSegment(incidentID))
	return ok
}
