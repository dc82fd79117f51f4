// Package metrics registers the risk engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_riskengine_events_total",
			Help: "Detector events received, by detector and outcome",
		},
		[]string{"detector", "outcome"},
	)

	IncidentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_riskengine_incidents_total",
			Help: "Incidents created, by risk level",
		},
		[]string{"level"},
	)

	RiskScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_riskengine_risk_score",
			Help:    "Distribution of incident risk scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_riskengine_active_sessions",
			Help: "Sessions with events inside the correlation window",
		},
	)

	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_riskengine_publish_total",
			Help: "Incident notifications, by sink and outcome",
		},
		[]string{"sink", "outcome"},
	)

	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_riskengine_publish_duration_seconds",
			Help:    "Time spent delivering an incident to a sink",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	PublishQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_riskengine_publish_queue_depth",
			Help: "Incidents waiting to be published",
		},
	)

	PublishDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_riskengine_publish_dropped_total",
			Help: "Incidents dropped because the publish queue was full or closed",
		},
	)
)
