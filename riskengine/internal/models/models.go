// Package models defines the risk engine's data contracts.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SourceKind identifies which detector family produced an event.
type SourceKind string

const (
	SourceNetwork SourceKind = "network"
	SourceApp     SourceKind = "app"
	SourceVisual  SourceKind = "visual"
)

// Valid reports whether k is a known detector family.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceNetwork, SourceApp, SourceVisual:
		return true
	}
	return false
}

// RiskLevel is the coarse severity of an incident.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Action is the response recommended for an incident.
type Action string

const (
	ActionAllow   Action = "allow"
	ActionDeceive Action = "deceive"
	ActionKill    Action = "kill_session"
)

// DetectorEvent is a single heuristic signal about a session. Details keeps
// the producer's original JSON so key order survives a round trip.
type DetectorEvent struct {
	EventID      string          `json:"event_id"`
	SessionID    string          `json:"session_id"`
	Timestamp    string          `json:"timestamp"`
	Source       SourceKind      `json:"detector"`
	Type         string          `json:"type"`
	Confidence   float64         `json:"confidence"`
	Details      json.RawMessage `json:"details"`
	ArtifactRefs []string        `json:"artifact_refs"`
}

var ErrInvalidEvent = errors.New("invalid detector event")

// Normalize fills the optional collections so they serialize as {} and [].
func (e *DetectorEvent) Normalize() {
	if len(e.Details) == 0 || string(e.Details) == "null" {
		e.Details = json.RawMessage(`{}`)
	}
	if e.ArtifactRefs == nil {
		e.ArtifactRefs = []string{}
	}
}

// Validate checks the boundary rules for an incoming event.
func (e *DetectorEvent) Validate() error {
	switch {
	case e.EventID == "":
		return fmt.Errorf("%w: event_id is required", ErrInvalidEvent)
	case e.SessionID == "":
		return fmt.Errorf("%w: session_id is required", ErrInvalidEvent)
	case e.Timestamp == "":
		return fmt.Errorf("%w: timestamp is required", ErrInvalidEvent)
	case e.Type == "":
		return fmt.Errorf("%w: type is required", ErrInvalidEvent)
	case !e.Source.Valid():
		return fmt.Errorf("%w: detector must be one of network, app, visual", ErrInvalidEvent)
	case e.Confidence < 0 || e.Confidence > 1:
		return fmt.Errorf("%w: confidence must be within [0, 1]", ErrInvalidEvent)
	}
	if len(e.Details) > 0 && string(e.Details) != "null" {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(e.Details, &obj); err != nil {
			return fmt.Errorf("%w: details must be a JSON object", ErrInvalidEvent)
		}
	}
	return nil
}

// Incident is the immutable outcome of one correlation pass.
type Incident struct {
	IncidentID        string          `json:"incident_id"`
	SessionID         string          `json:"session_id"`
	RiskScore         int             `json:"risk_score"`
	RiskLevel         RiskLevel       `json:"risk_level"`
	Events            []DetectorEvent `json:"events"`
	RecommendedAction Action          `json:"recommended_action"`
	ArtifactRefs      []string        `json:"artifact_refs"`

	CreatedAt time.Time `json:"-"`
}

// Acknowledgement records an operator acknowledging an incident.
type Acknowledgement struct {
	IncidentID     string    `json:"incident_id"`
	AcknowledgedBy string    `json:"acknowledged_by"`
	Note           string    `json:"note"`
	At             time.Time `json:"at"`
}

// AcknowledgeRequest is the body of POST /incidents/acknowledge.
type AcknowledgeRequest struct {
	IncidentID     string  `json:"incident_id"`
	AcknowledgedBy *string `json:"acknowledged_by"`
	Note           *string `json:"note"`
}

// IngestResponse is returned from POST /detector-events.
type IngestResponse struct {
	Status          string    `json:"status"`
	IncidentCreated bool      `json:"incident_created"`
	Incident        *Incident `json:"incident"`
}

// Contributor is one entry of an incident explanation.
type Contributor struct {
	Type  string `json:"type"`
	Score int    `json:"score"`
}

// Explanation attributes an incident's score to event types.
type Explanation struct {
	TotalScore      int           `json:"total_score"`
	TopContributors []Contributor `json:"top_contributors"`
}

// StatusResponse is the generic {"status": ...} body.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
