// Package metrics registers the forensics service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_forensics_captures_total",
			Help: "Forensic captures, by outcome",
		},
		[]string{"outcome"},
	)

	CaptureDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_forensics_capture_duration_seconds",
			Help:    "Time to collect, hash and persist one capture",
			Buckets: prometheus.DefBuckets,
		},
	)

	ArtifactsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_forensics_artifacts_total",
			Help: "Artifacts written to raw evidence, by type",
		},
		[]string{"type"},
	)

	PlaceholdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_forensics_placeholders_total",
			Help: "Placeholder artifacts written because a source was missing, by type",
		},
		[]string{"type"},
	)

	AnchorTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_forensics_anchor_total",
			Help: "Anchor attempts, by outcome",
		},
		[]string{"outcome"},
	)

	VerifyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_forensics_verify_total",
			Help: "Ledger verifications, by outcome",
		},
		[]string{"outcome"},
	)
)
