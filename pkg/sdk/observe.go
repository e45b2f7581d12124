package facetdex

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// allDataSources labels operations that span every data source, such as the initial build.
const allDataSources = "*"

type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	matched    *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facetdex",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK operations by data source and outcome.",
		}, []string{"operation", "data_source", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "facetdex",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation latency per data source.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation", "data_source"}),
		matched: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "facetdex",
			Subsystem: "sdk",
			Name:      "matched_documents",
			Help:      "Documents matched by a search or insights query.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"operation", "data_source"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.matched); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or points it at the collector already registered under the same
// descriptor so several clients can share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("facetdex: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("facetdex: metric already registered with incompatible type: %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and counts SDK operations. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func (o *observer) observe(op, dataSource string, start time.Time, err error) {
	if o == nil {
		return
	}
	if dataSource == "" {
		dataSource = allDataSources
	}
	dur := time.Since(start)

	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.operations.WithLabelValues(op, dataSource, status).Inc()
		o.metrics.duration.WithLabelValues(op, dataSource).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}
	attrs := []any{
		slog.String("operation", op),
		slog.String("data_source", dataSource),
		slog.Duration("duration", dur),
	}
	if err != nil {
		o.logger.Warn("facetdex operation failed", append(attrs, slog.Any("error", err))...)
		return
	}
	o.logger.Debug("facetdex operation", attrs...)
}

// matched records how many documents a query matched.
func (o *observer) matched(op, dataSource string, total int) {
	if o == nil || o.metrics == nil {
		return
	}
	o.metrics.matched.WithLabelValues(op, dataSource).Observe(float64(total))
}
