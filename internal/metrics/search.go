package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "facetdex"

// Search Prometheus metrics.
var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Faceted query duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"data_source", "kind"}, // kind: search / insights
	)

	IndexDocuments = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_documents",
			Help:      "Documents held by the index of a data source",
		},
		[]string{"data_source"},
	)

	WorkerMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_messages_total",
			Help:      "Messages handled by search workers",
		},
		[]string{"action", "status"},
	)

	WorkerMessageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_message_duration_seconds",
			Help:      "Time a worker spends on one message",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"action"},
	)

	StaleResponsesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Worker results discarded because a newer query was issued",
		},
	)

	PayloadCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_cache_total",
			Help:      "Search payload cache hits and misses",
		},
		[]string{"layer", "result"}, // layer: memory / redis, result: hit / miss
	)
)

var registerOnce sync.Once

// RegisterSearchMetrics registers the search metrics. Safe to call more than once.
func RegisterSearchMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(QueryDuration)
		prometheus.MustRegister(IndexDocuments)
		prometheus.MustRegister(WorkerMessagesTotal)
		prometheus.MustRegister(WorkerMessageDuration)
		prometheus.MustRegister(StaleResponsesTotal)
		prometheus.MustRegister(PayloadCacheTotal)
	})
}

// WorkerObserver feeds worker instrumentation into Prometheus.
type WorkerObserver struct{}

// MessageHandled records one handled worker message.
func (WorkerObserver) MessageHandled(action string, d time.Duration, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	WorkerMessagesTotal.WithLabelValues(action, status).Inc()
	WorkerMessageDuration.WithLabelValues(action).Observe(d.Seconds())
}

// StaleResponse records a discarded out-of-date result.
func (WorkerObserver) StaleResponse() {
	StaleResponsesTotal.Inc()
}

// ObserveQuery records the duration of a query started at start.
func ObserveQuery(dataSource, kind string, start time.Time) {
	QueryDuration.WithLabelValues(dataSource, kind).Observe(time.Since(start).Seconds())
}

// CacheResult records a payload cache lookup.
func CacheResult(layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	PayloadCacheTotal.WithLabelValues(layer, result).Inc()
}
