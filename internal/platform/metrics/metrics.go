// Package metrics defines the Prometheus collectors for quota decisions,
// study activity, card generation, and HTTP traffic, plus the chi middleware
// that feeds the HTTP collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Quota metrics
	QuotaChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parlo",
			Name:      "quota_checks_total",
			Help:      "Quota gate decisions by type and outcome",
		},
		[]string{"quota_type", "allowed"},
	)

	QuotaExhaustionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parlo",
			Name:      "quota_exhaustions_total",
			Help:      "Metered actions denied because the daily quota was spent",
		},
		[]string{"quota_type", "plan_type"},
	)

	PlanChangeFlowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parlo",
			Name:      "plan_change_flows_total",
			Help:      "Plan-change flows opened, by origin",
		},
		[]string{"origin"},
	)

	SnapshotCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "parlo",
			Name:      "snapshot_cache_hits_total",
			Help:      "Quota snapshot cache hits",
		},
	)

	SnapshotCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "parlo",
			Name:      "snapshot_cache_misses_total",
			Help:      "Quota snapshot cache misses",
		},
	)

	// Study metrics
	StudySessionsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parlo",
			Name:      "study_sessions_started_total",
			Help:      "Study sessions started, by plan",
		},
		[]string{"plan_type"},
	)

	// Generation metrics
	GenerationTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parlo",
			Name:      "generation_tasks_total",
			Help:      "Card generation tasks by terminal status",
		},
		[]string{"status"},
	)

	GenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:      "generation_duration_seconds",
			Namespace: "parlo",
			Help:      "Wall time of a card generation task",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	TaskQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "parlo",
			Name:      "task_queue_depth",
			Help:      "Tasks waiting in the in-memory queue",
		},
	)

	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parlo",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "parlo",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		QuotaChecksTotal,
		QuotaExhaustionsTotal,
		PlanChangeFlowsTotal,
		SnapshotCacheHits,
		SnapshotCacheMisses,
		StudySessionsStartedTotal,
		GenerationTasksTotal,
		GenerationDuration,
		TaskQueueDepth,
		httpRequestsTotal,
		httpRequestDuration,
	)
}
