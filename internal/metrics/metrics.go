// Package metrics registers the application's custom Prometheus metrics.
// HTTP-level metrics come from the fiber middleware; these cover the parts
// the middleware cannot see.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Summary pipeline metrics
	SummaryGenerations *prometheus.CounterVec
	SummaryLatency     prometheus.Histogram

	// Storage metrics
	StoreChanges *prometheus.CounterVec
}

var globalMetrics *Metrics

// Init initializes the Prometheus metrics. connCount and queueDepth feed
// gauge collectors so the values are always current at scrape time.
func Init(connCount func() int, queueDepth func() int) *Metrics {
	metrics := &Metrics{
		// Summary generations by outcome (ready, fallback, queued, error)
		SummaryGenerations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nuuko_summary_generations_total",
			Help: "Total number of summary generation requests by outcome",
		}, []string{"outcome"}),

		SummaryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nuuko_summary_duration_seconds",
			Help:    "Summary generation latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		StoreChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nuuko_store_changes_total",
			Help: "Total number of storage change notifications by collection",
		}, []string{"collection"}),
	}

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "nuuko_websocket_connections_current",
			Help: "Current number of connected change-feed clients",
		},
		func() float64 {
			if connCount != nil {
				return float64(connCount())
			}
			return 0
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "nuuko_summary_queue_depth",
			Help: "Number of summary jobs waiting for connectivity",
		},
		func() float64 {
			if queueDepth != nil {
				return float64(queueDepth())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// Get returns the global metrics instance, or nil before Init.
func Get() *Metrics {
	return globalMetrics
}
