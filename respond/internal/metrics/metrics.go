// Package metrics registers the respond service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IncidentsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_respond_incidents_received_total",
			Help: "Incidents received, by transport",
		},
		[]string{"transport"},
	)

	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_respond_actions_total",
			Help: "Response actions dispatched, by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	ForensicsTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_respond_forensics_triggers_total",
			Help: "Forensic capture requests, by outcome",
		},
		[]string{"outcome"},
	)
)
