// Package metrics registers the ledger gateway's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnchorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ledger_anchors_total",
			Help: "Anchor requests, by outcome",
		},
		[]string{"outcome"},
	)

	VerifyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ledger_verify_total",
			Help: "Verify requests, by reported status",
		},
		[]string{"status"},
	)
)
