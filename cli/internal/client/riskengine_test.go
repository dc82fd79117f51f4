package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRiskEngine(t *testing.T, apiKey string) *RiskEngineClient {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/incidents", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"incident_id":"inc-1","session_id":"s-1","risk_score":75,"risk_level":"HIGH",` +
			`"events":[{"event_id":"e1","detector":"app","type":"clipboard_spike","confidence":0.9,"details":{}}],` +
			`"recommended_action":"kill_session","artifact_refs":[]}]`))
	})
	mux.HandleFunc("/incidents/inc-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"incident_id":"inc-1","session_id":"s-1","risk_score":75,"risk_level":"HIGH"}`))
	})
	mux.HandleFunc("/incidents/inc-1/explanation", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_score":75,"top_contributors":[{"type":"clipboard_spike","score":45},{"type":"dns_tunnel","score":30}]}`))
	})
	mux.HandleFunc("/incidents/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Incident not found"}`))
	})
	mux.HandleFunc("/incidents/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey != "" && r.Header.Get("X-API-Key") != apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewRiskEngineClient(srv.URL+"/", apiKey, 5*time.Second)
}

func TestRiskEngineClient_ListIncidents(t *testing.T) {
	c := newRiskEngine(t, "k")

	incidents, err := c.ListIncidents(context.Background())
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "inc-1", incidents[0].IncidentID)
	assert.Equal(t, "app", incidents[0].Events[0].Detector)
	assert.InDelta(t, 0.9, incidents[0].Events[0].Confidence, 1e-9)
}

func TestRiskEngineClient_GetIncident(t *testing.T) {
	c := newRiskEngine(t, "")

	inc, err := c.GetIncident(context.Background(), "inc-1")
	require.NoError(t, err)
	assert.Equal(t, 75, inc.RiskScore)

	_, err = c.GetIncident(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetIncident(context.Background(), "broken")
	assert.ErrorContains(t, err, "internal error")
}

func TestRiskEngineClient_Explain(t *testing.T) {
	c := newRiskEngine(t, "")

	exp, err := c.Explain(context.Background(), "inc-1")
	require.NoError(t, err)
	assert.Equal(t, 75, exp.TotalScore)
	assert.Equal(t, []Contributor{{Type: "clipboard_spike", Score: 45}, {Type: "dns_tunnel", Score: 30}}, exp.TopContributors)
}

func TestRiskEngineClient_Unauthorized(t *testing.T) {
	c := newRiskEngine(t, "k")
	c.apiKey = "wrong"

	_, err := c.ListIncidents(context.Background())
	assert.ErrorContains(t, err, "401")
}
