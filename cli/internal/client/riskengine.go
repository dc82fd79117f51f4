// Package client provides HTTP clients for SentinelVNC services.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sentinelvnc/sentinel/common/httputil"
	"github.com/sentinelvnc/sentinel/common/middleware"
)

// ErrNotFound is returned when the risk engine answers 404.
var ErrNotFound = errors.New("not found")

// Event is the subset of a detector event the CLI displays.
type Event struct {
	EventID    string          `json:"event_id"`
	SessionID  string          `json:"session_id"`
	Timestamp  string          `json:"timestamp"`
	Detector   string          `json:"detector"`
	Type       string          `json:"type"`
	Confidence float64         `json:"confidence"`
	Details    json.RawMessage `json:"details,omitempty"`
}

type Incident struct {
	IncidentID        string   `json:"incident_id"`
	SessionID         string   `json:"session_id"`
	RiskScore         int      `json:"risk_score"`
	RiskLevel         string   `json:"risk_level"`
	Events            []Event  `json:"events"`
	RecommendedAction string   `json:"recommended_action"`
	ArtifactRefs      []string `json:"artifact_refs"`
}

type Contributor struct {
	Type  string `json:"type"`
	Score int    `json:"score"`
}

type Explanation struct {
	TotalScore      int           `json:"total_score"`
	TopContributors []Contributor `json:"top_contributors"`
}

// RiskEngineClient reads incidents from the risk engine API.
type RiskEngineClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRiskEngineClient creates a client rooted at baseURL.
func NewRiskEngineClient(baseURL, apiKey string, timeout time.Duration) *RiskEngineClient {
	return &RiskEngineClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// ListIncidents returns every stored incident.
func (c *RiskEngineClient) ListIncidents(ctx context.Context) ([]Incident, error) {
	var out []Incident
	if err := c.get(ctx, "/incidents", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RiskEngineClient) GetIncident(ctx context.Context, id string) (*Incident, error) {
	var out Incident
	if err := c.get(ctx, "/incidents/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RiskEngineClient) Explain(ctx context.Context, id string) (*Explanation, error) {
	var out Explanation
	if err := c.get(ctx, "/incidents/"+url.PathEscape(id)+"/explanation", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RiskEngineClient) get(ctx context.Context, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(middleware.APIKeyHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr httputil.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("risk engine returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("risk engine returned %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
