// Package metrics provides Prometheus metrics for StaySentinel.
// Scrape these at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Pipeline Metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stay_runs_total",
			Help: "Pipeline runs by final status (success, failed, rejected)",
		},
		[]string{"trigger", "status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stay_run_duration_seconds",
			Help:    "Wall time of a full pipeline pass",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200},
		},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stay_last_run_timestamp_seconds",
			Help: "Unix time of the last finished run",
		},
	)

	// Collector Metrics
	DaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stay_collector_days_total",
			Help: "Window days by outcome (collected, skipped)",
		},
		[]string{"outcome"},
	)

	CardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stay_collector_cards_total",
			Help: "Property cards by outcome (accepted, discarded)",
		},
		[]string{"outcome"},
	)

	// Forecast Metrics
	EntitiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stay_entities_total",
			Help: "Properties by outcome (published, dropped, malformed)",
		},
		[]string{"outcome"},
	)

	EstimateCoercionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stay_forecast_estimate_coercions_total",
			Help: "Non-finite forecast estimates replaced by the default value",
		},
	)

	ModelFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stay_forecast_model_fallbacks_total",
			Help: "Entities forecast with the secondary model after the primary failed",
		},
	)

	// Publisher Metrics
	RemoteSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stay_remote_sync_total",
			Help: "Remote sync attempts by path (bulk, fallback) and status",
		},
		[]string{"path", "status"},
	)

	FallbackRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stay_fallback_records_total",
			Help: "Per-record fallback writes by status",
		},
		[]string{"status"},
	)
)
