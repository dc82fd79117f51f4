package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelvnc/sentinel/common/logging"
	"github.com/sentinelvnc/sentinel/tools/event-seeder/attacks"
)

func scriptedServer(t *testing.T, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		status := statuses[len(statuses)-1]
		if int(n) <= len(statuses) {
			status = statuses[n-1]
		}
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"status":"ok","incident_created":true,"incident":{"incident_id":"inc-1","risk_score":42,"risk_level":"MEDIUM","recommended_action":"deceive"}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testSender(url string) *sender {
	s := newSender(url, "k", logging.Discard().Logger)
	s.backoff = time.Millisecond
	return s
}

func TestSender_Retries(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErr   bool
	}{
		{name: "first try", statuses: []int{200}, wantCalls: 1},
		{name: "recovers after 5xx", statuses: []int{503, 502, 200}, wantCalls: 3},
		{name: "gives up after three", statuses: []int{500}, wantCalls: 3, wantErr: true},
		{name: "4xx is permanent", statuses: []int{400}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := scriptedServer(t, tt.statuses...)

			resp, err := testSender(srv.URL).send(context.Background(), attacks.DetectorEvent{EventID: "e1"})
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, resp.IncidentCreated)
			assert.Equal(t, "inc-1", resp.Incident.IncidentID)
		})
	}
}

func TestSender_BackoffDoubles(t *testing.T) {
	var mu sync.Mutex
	var stamps []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := newSender(srv.URL, "", logging.Discard().Logger)
	s.backoff = 20 * time.Millisecond

	_, err := s.send(context.Background(), attacks.DetectorEvent{})
	require.Error(t, err)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 40*time.Millisecond)
}

func TestSender_ContextCancelled(t *testing.T) {
	srv, _ := scriptedServer(t, 500)
	s := testSender(srv.URL)
	s.backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.send(ctx, attacks.DetectorEvent{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSelectPatterns(t *testing.T) {
	all, err := selectPatterns("all")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	got, err := selectPatterns(" dns_tunnel, screenshot_burst ,")
	require.NoError(t, err)
	assert.Equal(t, []string{"dns_tunnel", "screenshot_burst"}, got)

	_, err = selectPatterns("dns_tunnel,brute_force")
	assert.ErrorContains(t, err, "unknown pattern")

	_, err = selectPatterns(" , ")
	assert.Error(t, err)
}
