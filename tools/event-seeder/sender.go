package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sentinelvnc/sentinel/common/logging"
	"github.com/sentinelvnc/sentinel/common/middleware"
	"github.com/sentinelvnc/sentinel/tools/event-seeder/attacks"
)

const (
	sendAttempts   = 3
	initialBackoff = 500 * time.Millisecond
)

// permanentError is a response that retrying cannot fix.
type permanentError struct{ status int }

func (e *permanentError) Error() string {
	return fmt.Sprintf("risk engine rejected event with status %d", e.status)
}

// sender posts events to the risk engine, retrying transport failures and
// 5xx responses with doubling backoff.
type sender struct {
	url     string
	apiKey  string
	client  *http.Client
	backoff time.Duration
	logger  *slog.Logger
}

func newSender(url, apiKey string, logger *slog.Logger) *sender {
	return &sender{
		url:     url,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Second},
		backoff: initialBackoff,
		logger:  logger,
	}
}

// ingestResponse is the part of the risk engine's reply the seeder reports.
type ingestResponse struct {
	IncidentCreated bool `json:"incident_created"`
	Incident        *struct {
		IncidentID        string `json:"incident_id"`
		RiskScore         int    `json:"risk_score"`
		RiskLevel         string `json:"risk_level"`
		RecommendedAction string `json:"recommended_action"`
	} `json:"incident"`
}

func (s *sender) send(ctx context.Context, ev attacks.DetectorEvent) (*ingestResponse, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	wait := s.backoff
	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		resp, err := s.post(ctx, body)
		if err == nil {
			return resp, nil
		}
		if _, ok := err.(*permanentError); ok {
			return nil, err
		}
		lastErr = err

		if attempt == sendAttempts {
			break
		}
		s.logger.Warn("send failed, retrying",
			slog.String("event_id", ev.EventID),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
			logging.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", sendAttempts, lastErr)
}

func (s *sender) post(ctx context.Context, body []byte) (*ingestResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set(middleware.APIKeyHeader, s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("risk engine returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, &permanentError{status: resp.StatusCode}
	}

	var out ingestResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
