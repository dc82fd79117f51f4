// Package anchor submits Merkle roots to the ledger gateway and checks them back.
package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sentinelvnc/sentinel/common/logging"
	"github.com/sentinelvnc/sentinel/common/middleware"
	"github.com/sentinelvnc/sentinel/forensics/internal/metrics"
)

// Log codes for gateway calls.
const (
	CodeAnchorCalled = "BC100"
	CodeAnchorFailed = "BC101"
	CodeVerifyCalled = "BC200"
	CodeVerifyFailed = "BC201"
)

const (
	defaultTimeout = 5 * time.Second
	maxLoggedBody  = 512
	maxBodyBytes   = 1 << 20
)

// State tracks an incident's progress towards a ledger anchor.
type State string

const (
	StateUnanchored      State = "UNANCHORED"
	StateAnchorAttempted State = "ANCHOR_ATTEMPTED"
	StateAnchored        State = "ANCHORED"
	StateAnchorFailed    State = "ANCHOR_FAILED"
)

// Result is the outcome of one anchoring attempt.
type Result struct {
	State State
	TxID  string
}

// Config holds gateway endpoints and credentials.
type Config struct {
	AnchorURL string
	VerifyURL string
	APIKey    string
	Timeout   time.Duration
}

// Client talks to the ledger gateway. Every call is best-effort: failures
// are logged and reported as a failed state or a false verification.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a Client. A zero timeout means 5s.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AnchorURL == "" || cfg.VerifyURL == "" {
		logger.Warn("ledger gateway not fully configured, anchoring and verification will be skipped",
			slog.Bool("anchor_configured", cfg.AnchorURL != ""),
			slog.Bool("verify_configured", cfg.VerifyURL != ""))
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(slog.String(logging.FieldComponent, "anchor")),
	}
}

type anchorPayload struct {
	IncidentID string `json:"incident_id"`
	MerkleRoot string `json:"merkle_root"`
	Timestamp  string `json:"timestamp"`
}

type verifyPayload struct {
	IncidentID string `json:"incident_id"`
	MerkleRoot string `json:"merkle_root"`
}

type anchorReply struct {
	TxID          string `json:"tx_id"`
	TransactionID string `json:"transaction_id"`
}

// Anchor submits the root once and reports ANCHORED with the tx id or ANCHOR_FAILED.
func (c *Client) Anchor(ctx context.Context, incidentID, merkleRoot, timestamp string) Result {
	if c.cfg.AnchorURL == "" {
		c.logger.InfoContext(ctx, "anchor skipped, no anchor url configured", logging.IncidentID(incidentID))
		metrics.AnchorTotal.WithLabelValues("skipped").Inc()
		return Result{State: StateAnchorFailed}
	}

	status, body, err := c.post(ctx, c.cfg.AnchorURL, anchorPayload{
		IncidentID: incidentID,
		MerkleRoot: merkleRoot,
		Timestamp:  timestamp,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "anchor call failed",
			logging.Code(CodeAnchorFailed), logging.IncidentID(incidentID), logging.Error(err))
		metrics.AnchorTotal.WithLabelValues("error").Inc()
		return Result{State: StateAnchorFailed}
	}
	c.logger.InfoContext(ctx, "anchor called",
		logging.Code(CodeAnchorCalled), logging.IncidentID(incidentID),
		logging.Status(status), slog.String("body", truncate(body)))

	if status >= http.StatusBadRequest {
		metrics.AnchorTotal.WithLabelValues("rejected").Inc()
		return Result{State: StateAnchorFailed}
	}

	var reply anchorReply
	if err := json.Unmarshal(body, &reply); err != nil {
		c.logger.ErrorContext(ctx, "anchor reply undecodable",
			logging.Code(CodeAnchorFailed), logging.IncidentID(incidentID), logging.Error(err))
		metrics.AnchorTotal.WithLabelValues("error").Inc()
		return Result{State: StateAnchorFailed}
	}

	txID := strings.TrimSpace(reply.TxID)
	if txID == "" {
		txID = strings.TrimSpace(reply.TransactionID)
	}
	if txID == "" {
		metrics.AnchorTotal.WithLabelValues("rejected").Inc()
		return Result{State: StateAnchorFailed}
	}
	metrics.AnchorTotal.WithLabelValues("anchored").Inc()
	return Result{State: StateAnchored, TxID: txID}
}

// Verify asks the gateway whether root is the anchored root for the incident.
func (c *Client) Verify(ctx context.Context, incidentID, merkleRoot string) bool {
	if c.cfg.VerifyURL == "" {
		c.logger.InfoContext(ctx, "verify skipped, no verify url configured", logging.IncidentID(incidentID))
		metrics.VerifyTotal.WithLabelValues("skipped").Inc()
		return false
	}

	status, body, err := c.post(ctx, c.cfg.VerifyURL, verifyPayload{IncidentID: incidentID, MerkleRoot: merkleRoot})
	if err != nil {
		c.logger.ErrorContext(ctx, "verify call failed",
			logging.Code(CodeVerifyFailed), logging.IncidentID(incidentID), logging.Error(err))
		metrics.VerifyTotal.WithLabelValues("error").Inc()
		return false
	}
	c.logger.InfoContext(ctx, "verify called",
		logging.Code(CodeVerifyCalled), logging.IncidentID(incidentID),
		logging.Status(status), slog.String("body", truncate(body)))

	if status >= http.StatusBadRequest {
		metrics.VerifyTotal.WithLabelValues("rejected").Inc()
		return false
	}

	outcome := normalizeVerify(body)
	if outcome.Kind == VerifyUnrecognized {
		c.logger.WarnContext(ctx, "verify reply not recognized", logging.IncidentID(incidentID))
	}
	if outcome.Verified {
		metrics.VerifyTotal.WithLabelValues("verified").Inc()
	} else {
		metrics.VerifyTotal.WithLabelValues("unverified").Inc()
	}
	return outcome.Verified
}

func (c *Client) post(ctx context.Context, url string, payload interface{}) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set(middleware.APIKeyHeader, c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "..."
	}
	return string(body)
}
