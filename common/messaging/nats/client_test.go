package nats

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"

	"github.com/sentinelvnc/sentinel/common/middleware"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, nats.DefaultURL, cfg.URL)
	assert.Equal(t, -1, cfg.MaxReconnects)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestNatsToMessage(t *testing.T) {
	msg := &nats.Msg{
		Subject: "sentinel.incidents.created",
		Data:    []byte(`{"incident_id":"x"}`),
		Header:  nats.Header{"X-Request-ID": []string{"r1"}},
	}

	m := natsToMessage(msg)
	assert.Equal(t, "sentinel.incidents.created", m.Subject)
	assert.Equal(t, `{"incident_id":"x"}`, string(m.Data))
	assert.Equal(t, "r1", m.Metadata["X-Request-ID"])
	assert.False(t, m.Timestamp.IsZero())
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.MaxReconnects = 0
	cfg.Timeout = 200 * time.Millisecond

	_, err := NewClient(cfg)
	assert.Error(t, err)
}

func TestOutgoing(t *testing.T) {
	msg := outgoing(context.Background(), "sentinel.forensics.captured", []byte("{}"))
	assert.Equal(t, "sentinel.forensics.captured", msg.Subject)
	assert.Empty(t, msg.Header.Get(middleware.RequestIDHeader))

	ctx := middleware.WithRequestID(context.Background(), "req-3")
	msg = outgoing(ctx, "sentinel.forensics.captured", []byte("{}"))
	assert.Equal(t, "req-3", msg.Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, "{}", string(msg.Data))
}
