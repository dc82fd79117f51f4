package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sentinelvnc/sentinel/common/messaging"
	"github.com/sentinelvnc/sentinel/common/middleware"
	"github.com/sentinelvnc/sentinel/riskengine/internal/models"
)

// HTTPSink POSTs the incident JSON to the response engine.
type HTTPSink struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPSink creates an HTTPSink. Delivery deadlines come from the
// publisher's per-send context.
func NewHTTPSink(url, apiKey string) *HTTPSink {
	return &HTTPSink{url: url, apiKey: apiKey, client: &http.Client{}}
}

func (s *HTTPSink) Name() string { return "http" }

func (s *HTTPSink) Send(ctx context.Context, incident *models.Incident) error {
	body, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "sentinel-riskengine/1.0")
	if s.apiKey != "" {
		req.Header.Set(middleware.APIKeyHeader, s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send incident: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("response engine returned status %d", resp.StatusCode)
	}
	return nil
}

// NATSSink publishes the incident on the broker.
type NATSSink struct {
	pub     messaging.Publisher
	subject string
}

func NewNATSSink(pub messaging.Publisher) *NATSSink {
	return &NATSSink{pub: pub, subject: messaging.SubjectIncidentsCreated}
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Send(ctx context.Context, incident *models.Incident) error {
	return s.pub.PublishJSON(ctx, s.subject, incident)
}
