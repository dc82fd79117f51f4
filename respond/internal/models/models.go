// Package models defines the respond service's view of risk engine incidents.
package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sentinelvnc/sentinel/common/messaging"
)

// Action values the risk engine recommends. "deception_mode" is accepted as
// an alias for deceive.
const (
	ActionAllow         = "allow"
	ActionDeceive       = "deceive"
	ActionDeceptionMode = "deception_mode"
	ActionKill          = "kill_session"
)

var ErrInvalidIncident = errors.New("invalid incident")

// Incident mirrors the risk engine's incident. Events are passed through
// untouched.
type Incident struct {
	IncidentID        string          `json:"incident_id"`
	SessionID         string          `json:"session_id"`
	RiskScore         int             `json:"risk_score"`
	RiskLevel         string          `json:"risk_level"`
	Events            json.RawMessage `json:"events,omitempty"`
	RecommendedAction string          `json:"recommended_action"`
	ArtifactRefs      []string        `json:"artifact_refs"`
}

// Validate checks the fields the dispatcher depends on.
func (i *Incident) Validate() error {
	switch {
	case i.IncidentID == "":
		return fmt.Errorf("%w: incident_id is required", ErrInvalidIncident)
	case i.SessionID == "":
		return fmt.Errorf("%w: session_id is required", ErrInvalidIncident)
	}
	return nil
}

// StatusResponse is the generic {"status": ...} body.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status  string                  `json:"status"`
	Service string                  `json:"service"`
	NATS    *messaging.BrokerHealth `json:"nats,omitempty"`
}
