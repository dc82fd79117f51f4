// Package models defines the forensics wire and on-disk types.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ArtifactType classifies a collected artifact.
type ArtifactType string

const (
	ArtifactScreenshot  ArtifactType = "screenshot"
	ArtifactClipboard   ArtifactType = "clipboard"
	ArtifactNetworkMeta ArtifactType = "network_meta"
)

// Valid reports whether t is a type the collector understands.
func (t ArtifactType) Valid() bool {
	switch t {
	case ArtifactScreenshot, ArtifactClipboard, ArtifactNetworkMeta:
		return true
	}
	return false
}

// ErrInvalidRequest is returned when a forensics request fails validation.
var ErrInvalidRequest = errors.New("invalid forensics request")

// ArtifactRef asks the collector for one kind of evidence.
type ArtifactRef struct {
	Type   ArtifactType `json:"type"`
	Source string       `json:"source"`
	Ref    string       `json:"ref"`
}

// DefaultRefs is the set collected when a request names no refs.
func DefaultRefs() []ArtifactRef {
	return []ArtifactRef{
		{Type: ArtifactScreenshot, Source: "visual_detector", Ref: "last_5"},
		{Type: ArtifactClipboard, Source: "app_detector", Ref: "last_20"},
		{Type: ArtifactNetworkMeta, Source: "network_meta", Ref: "last_pcap"},
	}
}

// ParseArtifactRef parses the "type/source/ref" string form carried on incidents.
// The ref part is optional and defaults to "last".
func ParseArtifactRef(s string) (ArtifactRef, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ArtifactRef{}, fmt.Errorf("%w: artifact ref %q", ErrInvalidRequest, s)
	}
	ref := ArtifactRef{Type: ArtifactType(parts[0]), Source: parts[1], Ref: "last"}
	if len(parts) == 3 && parts[2] != "" {
		ref.Ref = parts[2]
	}
	if !ref.Type.Valid() {
		return ArtifactRef{}, fmt.Errorf("%w: unknown artifact type %q", ErrInvalidRequest, parts[0])
	}
	return ref, nil
}

// String renders the ref in its "type/source/ref" form.
func (r ArtifactRef) String() string {
	return string(r.Type) + "/" + r.Source + "/" + r.Ref
}

// ArtifactInfo describes one file under the incident's raw directory.
type ArtifactInfo struct {
	Filename      string       `json:"filename"`
	SHA256        string       `json:"sha256"`
	SizeBytes     int64        `json:"size_bytes"`
	Type          ArtifactType `json:"type"`
	Source        string       `json:"source"`
	SourceMissing bool         `json:"source_missing"`
}

// Manifest is the persisted description of a capture.
type Manifest struct {
	ManifestVersion string         `json:"manifest_version"`
	SchemaVersion   string         `json:"schema_version"`
	IncidentID      string         `json:"incident_id"`
	SessionID       string         `json:"session_id"`
	Timestamp       string         `json:"timestamp"`
	ArtifactCount   int            `json:"artifact_count"`
	Artifacts       []ArtifactInfo `json:"artifacts"`
	MerkleRoot      string         `json:"merkle_root"`
}

// StartRequest is the body of POST /forensics/start.
type StartRequest struct {
	IncidentID   string                 `json:"incident_id"`
	SessionID    string                 `json:"session_id"`
	ArtifactRefs []ArtifactRef          `json:"artifact_refs"`
	Meta         map[string]interface{} `json:"meta,omitempty"`
}

// Validate checks required fields and ref types.
func (r *StartRequest) Validate() error {
	if strings.TrimSpace(r.IncidentID) == "" {
		return fmt.Errorf("%w: incident_id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.SessionID) == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}
	for _, ref := range r.ArtifactRefs {
		if !ref.Type.Valid() {
			return fmt.Errorf("%w: unknown artifact type %q", ErrInvalidRequest, ref.Type)
		}
	}
	return nil
}

// StartResponse is returned once a capture completes.
type StartResponse struct {
	IncidentID    string `json:"incident_id"`
	SessionID     string `json:"session_id"`
	ArtifactCount int    `json:"artifact_count"`
	MerkleRoot    string `json:"merkle_root"`
}

// AnchorRequest is the body of POST /forensics/anchor.
type AnchorRequest struct {
	IncidentID string `json:"incident_id"`
	MerkleRoot string `json:"merkle_root"`
	Timestamp  string `json:"timestamp"`
}

// Validate checks required fields.
func (r *AnchorRequest) Validate() error {
	if strings.TrimSpace(r.IncidentID) == "" {
		return fmt.Errorf("%w: incident_id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.MerkleRoot) == "" {
		return fmt.Errorf("%w: merkle_root is required", ErrInvalidRequest)
	}
	return nil
}

// AnchorResponse is returned when the stored root was verified on the ledger.
type AnchorResponse struct {
	Status     string `json:"status"`
	IncidentID string `json:"incident_id"`
	MerkleRoot string `json:"merkle_root"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// CaptureStatus is the body of GET /forensics/{incident_id}.
type CaptureStatus struct {
	IncidentID  string   `json:"incident_id"`
	AnchorState string   `json:"anchor_state"`
	TxID        string   `json:"tx_id,omitempty"`
	Manifest    Manifest `json:"manifest"`
}
