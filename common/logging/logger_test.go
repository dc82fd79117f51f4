package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelvnc/sentinel/common/middleware"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name   string
		format string
		isJSON bool
	}{
		{name: "json", format: "json", isJSON: true},
		{name: "text", format: "text", isJSON: false},
		{name: "default is json", format: "", isJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, slog.LevelInfo, tt.format)
			logger.Info("hello", Service("riskengine"))

			var decoded map[string]any
			err := json.Unmarshal(buf.Bytes(), &decoded)
			if tt.isJSON {
				require.NoError(t, err)
				assert.Equal(t, "riskengine", decoded[FieldService])
			} else {
				assert.Error(t, err)
				assert.Contains(t, buf.String(), "service=riskengine")
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	ctx := middleware.WithRequestID(context.Background(), "req-42")
	logger.InfoContext(ctx, "with id")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "req-42", decoded[FieldRequestID])

	buf.Reset()
	logger.With(Service("respond")).WarnContext(ctx, "derived logger")
	decoded = map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "req-42", decoded[FieldRequestID])
	assert.Equal(t, "respond", decoded[FieldService])

	buf.Reset()
	logger.InfoContext(context.Background(), "without id")
	decoded = map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	_, ok := decoded[FieldRequestID]
	assert.False(t, ok)
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelDebug, "json").Component("collector")
	logger.Debug("collected", IncidentID("inc-1"), SessionID("s-1"), Error(errors.New("boom")))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "collector", decoded[FieldComponent])
	assert.Equal(t, "inc-1", decoded[FieldIncidentID])
	assert.Equal(t, "s-1", decoded[FieldSessionID])
	assert.Equal(t, "boom", decoded[FieldError])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestErrorNil(t *testing.T) {
	attr := Error(nil)
	assert.Equal(t, "<nil>", attr.Value.String())
}
