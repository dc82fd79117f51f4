package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name      string
		existing  string
		propagate bool
	}{
		{name: "generates new request ID", existing: ""},
		{name: "propagates existing request ID", existing: "existing-req-123", propagate: true},
		{name: "replaces oversized ID", existing: strings.Repeat("a", 129)},
		{name: "replaces ID with spaces", existing: "req 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
			if tt.existing != "" {
				req.Header.Set(RequestIDHeader, tt.existing)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, captured, w.Header().Get(RequestIDHeader))
			if tt.propagate {
				assert.Equal(t, tt.existing, captured)
			} else {
				_, err := uuid.Parse(captured)
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-7")
	assert.Equal(t, "req-7", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestCORS(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{"https://dash.example.com", "*.sentinel.local"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}
	handler := CORS(cfg)(okHandler())

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"exact origin", http.MethodGet, "https://dash.example.com", "https://dash.example.com", http.StatusOK},
		{"wildcard subdomain", http.MethodGet, "https://ops.sentinel.local", "https://ops.sentinel.local", http.StatusOK},
		{"unknown origin", http.MethodGet, "https://evil.example", "", http.StatusOK},
		{"preflight", http.MethodOptions, "https://dash.example.com", "https://dash.example.com", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/incidents", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "300", w.Header().Get("Access-Control-Max-Age"))
		})
	}
}

func TestServiceAuth(t *testing.T) {
	const secret = "s3cret"
	token, err := MintServiceToken(secret, "respond", time.Minute)
	require.NoError(t, err)
	foreign, err := MintServiceToken("other", "respond", time.Minute)
	require.NoError(t, err)
	expired, err := MintServiceToken(secret, "respond", -time.Minute)
	require.NoError(t, err)

	handler := ServiceAuth(secret, "/health")(okHandler())

	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   int
	}{
		{"matching api key", "/forensics/start", map[string]string{APIKeyHeader: secret}, http.StatusOK},
		{"wrong api key", "/forensics/start", map[string]string{APIKeyHeader: "nope"}, http.StatusUnauthorized},
		{"no credentials", "/forensics/start", nil, http.StatusUnauthorized},
		{"valid bearer", "/forensics/start", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK},
		{"bearer signed with other secret", "/forensics/start", map[string]string{"Authorization": "Bearer " + foreign}, http.StatusUnauthorized},
		{"expired bearer", "/forensics/start", map[string]string{"Authorization": "Bearer " + expired}, http.StatusUnauthorized},
		{"open path", "/health", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestServiceAuth_LogsRejectedClient(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	req := httptest.NewRequest(http.MethodPost, "/incoming-incident", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	w := httptest.NewRecorder()
	ServiceAuth("s3cret")(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())

	var logged map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logged))
	assert.Equal(t, "203.0.113.7", logged["client_ip"])
	assert.Equal(t, "/incoming-incident", logged["path"])
}

func TestServiceAuth_Disabled(t *testing.T) {
	handler := ServiceAuth("")(okHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/forensics/start", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseServiceToken(t *testing.T) {
	token, err := MintServiceToken("k", "cli", time.Hour)
	require.NoError(t, err)

	claims, err := ParseServiceToken(token, "k")
	require.NoError(t, err)
	assert.Equal(t, "cli", claims.Service)
	assert.Equal(t, TokenIssuer, claims.Issuer)
}
