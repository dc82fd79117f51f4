// Package manifest builds and persists the capture manifest and its sidecars.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sentinelvnc/sentinel/forensics/pkg/models"
	"github.com/sentinelvnc/sentinel/forensics/pkg/storage"
)

const (
	Version = "1.0"

	ManifestFile   = "manifest.json"
	MerkleRootFile = "merkle_root.txt"
	AnchorTxFile   = "anchor_tx.txt"
)

// ErrManifestNotFound is returned when an incident has no persisted manifest or root.
var ErrManifestNotFound = errors.New("manifest not found")

// Build assembles a manifest. The timestamp is RFC 3339 in UTC with a Z suffix.
func Build(incidentID, sessionID string, artifacts []models.ArtifactInfo, merkleRoot string, now time.Time) models.Manifest {
	if artifacts == nil {
		artifacts = []models.ArtifactInfo{}
	}
	return models.Manifest{
		ManifestVersion: Version,
		SchemaVersion:   Version,
		IncidentID:      incidentID,
		SessionID:       sessionID,
		Timestamp:       now.UTC().Format(time.RFC3339Nano),
		ArtifactCount:   len(artifacts),
		Artifacts:       artifacts,
		MerkleRoot:      merkleRoot,
	}
}

// Store reads and writes manifests under a storage layout.
type Store struct {
	layout storage.Layout
}

// NewStore creates a manifest Store.
func NewStore(layout storage.Layout) *Store {
	return &Store{layout: layout}
}

// Write persists manifest.json and merkle_root.txt, replacing earlier runs.
func (s *Store) Write(m models.Manifest) error {
	dir, err := s.layout.ManifestDir(m.IncidentID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if _, err := storage.WriteFile(filepath.Join(dir, ManifestFile), data); err != nil {
		return err
	}
	if _, err := storage.WriteFile(filepath.Join(dir, MerkleRootFile), []byte(m.MerkleRoot)); err != nil {
		return err
	}
	return nil
}

// Read loads the incident's manifest.
func (s *Store) Read(incidentID string) (models.Manifest, error) {
	path := filepath.Join(s.layout.ManifestPath(incidentID), ManifestFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Manifest{}, fmt.Errorf("%w: %s", ErrManifestNotFound, incidentID)
	}
	if err != nil {
		return models.Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m models.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return models.Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// ReadRoot loads the merkle_root.txt sidecar, trimmed.
func (s *Store) ReadRoot(incidentID string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.layout.ManifestPath(incidentID), MerkleRootFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrManifestNotFound, incidentID)
	}
	if err != nil {
		return "", fmt.Errorf("read merkle root: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteAnchorTx records an anchoring attempt. An empty txID means the attempt failed.
func (s *Store) WriteAnchorTx(incidentID, txID string) error {
	dir, err := s.layout.ManifestDir(incidentID)
	if err != nil {
		return err
	}
	_, err = storage.WriteFile(filepath.Join(dir, AnchorTxFile), []byte(txID))
	return err
}

// ReadAnchorTx returns the recorded tx id and whether anchoring was ever attempted.
func (s *Store) ReadAnchorTx(incidentID string) (txID string, attempted bool, err error) {
	data, err := os.ReadFile(filepath.Join(s.layout.ManifestPath(incidentID), AnchorTxFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read anchor tx: %w", err)
	}
	return strings.TrimSpace(string(data)), true, nil
}
