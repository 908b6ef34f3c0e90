// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dosekeeper"

var (
	FeedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "glucose_feed_fetches_total",
		Help:      "Glucose feed fetch attempts by outcome.",
	}, []string{"outcome"})

	FeedFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "glucose_feed_fetch_seconds",
		Help:      "Latency of glucose feed fetches.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	})

	MealsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "meals_saved_total",
		Help:      "Meals saved through the data store.",
	})

	PendingTasksEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pending_glucose_tasks_enqueued_total",
		Help:      "Pending glucose capture tasks enqueued by kind.",
	}, []string{"kind"})

	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_failures_total",
		Help:      "Document writes that failed and were swallowed.",
	})

	SnapshotsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auto_backups_created_total",
		Help:      "Automatic backup snapshots written.",
	})
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeEmpty   = "empty"
)
