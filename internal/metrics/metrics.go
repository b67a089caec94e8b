package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	AuditRuns      prometheus.Counter
	CacheHits      prometheus.Counter
	FetchSuccesses prometheus.Counter
	FetchFailures  prometheus.Counter
	PrunedMessages prometheus.Counter
	AuditDuration  prometheus.Histogram
	TrackedSenders prometheus.Gauge
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		AuditRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailprune_audit_runs_total",
			Help: "Total number of audit runs started",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailprune_cache_hits_total",
			Help: "Total number of listed messages served from the local cache",
		}),
		FetchSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailprune_fetch_successes_total",
			Help: "Total number of message metadata fetches that succeeded",
		}),
		FetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailprune_fetch_failures_total",
			Help: "Total number of message metadata fetches abandoned after retries",
		}),
		PrunedMessages: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailprune_pruned_messages_total",
			Help: "Total number of cache entries pruned because the message left the mailbox",
		}),
		AuditDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mailprune_audit_duration_seconds",
			Help:    "Time spent per audit run",
			Buckets: prometheus.DefBuckets,
		}),
		TrackedSenders: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mailprune_tracked_senders",
			Help: "Number of distinct senders in the latest noise report",
		}),
	}
}
