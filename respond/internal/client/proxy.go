package client

import (
	"context"
	"net/http"
	"strings"
)

const (
	deceptionPath = "/admin/activate-deception"
	killPath      = "/admin/kill-session"
)

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

// ProxyClient drives the VNC proxy's admin endpoints.
type ProxyClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewProxyClient creates a new proxy client rooted at baseURL.
func NewProxyClient(baseURL, apiKey string) *ProxyClient {
	return &ProxyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{},
	}
}

// ActivateDeception switches sessionID to decoy content.
func (c *ProxyClient) ActivateDeception(ctx context.Context, sessionID string) error {
	_, err := postJSON(ctx, c.http, c.baseURL+deceptionPath, c.apiKey, sessionRequest{SessionID: sessionID})
	return err
}

// KillSession terminates sessionID.
func (c *ProxyClient) KillSession(ctx context.Context, sessionID string) error {
	_, err := postJSON(ctx, c.http, c.baseURL+killPath, c.apiKey, sessionRequest{SessionID: sessionID})
	return err
}
