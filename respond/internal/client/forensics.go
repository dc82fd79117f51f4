package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	fmodels "github.com/sentinelvnc/sentinel/forensics/pkg/models"
)

// ForensicsClient requests evidence capture from the forensics orchestrator.
type ForensicsClient struct {
	startURL string
	apiKey   string
	http     *http.Client
}

// NewForensicsClient creates a client posting to startURL.
func NewForensicsClient(startURL, apiKey string) *ForensicsClient {
	return &ForensicsClient{startURL: startURL, apiKey: apiKey, http: &http.Client{}}
}

// Start submits a capture request and returns the orchestrator's summary.
func (c *ForensicsClient) Start(ctx context.Context, req fmodels.StartRequest) (*fmodels.StartResponse, error) {
	data, err := postJSON(ctx, c.http, c.startURL, c.apiKey, req)
	if err != nil {
		return nil, err
	}
	var resp fmodels.StartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode forensics response: %w", err)
	}
	return &resp, nil
}
