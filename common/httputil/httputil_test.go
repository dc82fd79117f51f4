package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestWriteJSON_InvalidData(t *testing.T) {
	w := httptest.NewRecorder()
	assert.NotPanics(t, func() { WriteJSON(w, http.StatusOK, make(chan int)) })
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWriteErrorDetail(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorDetail(w, http.StatusBadRequest, "merkle root mismatch", "expected abc")

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "merkle root mismatch", body.Error)
	assert.Equal(t, "expected abc", body.Detail)
}

func TestMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowed(w, http.MethodGet, http.MethodPost)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, []string{"GET", "POST"}, w.Header().Values("Allow"))
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		ID string `json:"id"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"id":"a"}`, false},
		{"empty", ``, true},
		{"malformed", `{"id":`, true},
		{"trailing object", `{"id":"a"}{"id":"b"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(req, &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a", p.ID)
		})
	}
}

func TestExtractIDFromPath(t *testing.T) {
	tests := []struct {
		path, prefix, want string
	}{
		{"/incidents/abc", "/incidents", "abc"},
		{"/incidents/abc/explanation", "/incidents", "abc"},
		{"/incidents/", "/incidents", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractIDFromPath(tt.path, tt.prefix), tt.path)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9:5555", GetClientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", GetClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.195, 70.41.3.18")
	assert.Equal(t, "203.0.113.195", GetClientIP(req))
}
