package pieces

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// clientMetrics are the collectors registered on WithMetrics.
type clientMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	m := &clientMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pieces",
			Subsystem: "client",
			Name:      "operations_total",
			Help:      "Client operations by name and outcome.",
		}, []string{"operation", "collection", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pieces",
			Subsystem: "client",
			Name:      "operation_duration_seconds",
			Help:      "Client operation latency in seconds, model calls included.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation", "collection"}),
	}
	if err := registerOrReuse(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or points it at the collector already registered under
// the same descriptor so several clients can share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("pieces: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("pieces: metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer records the outcome of each client call. A nil observer does nothing.
type observer struct {
	collection string
	logger     *slog.Logger
	metrics    *clientMetrics
}

func newObserver(collection string, logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{collection: collection, logger: logger}
	if reg != nil {
		m, err := newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	elapsed := time.Since(start)

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(op, o.collection, outcome(err)).Inc()
		o.metrics.duration.WithLabelValues(op, o.collection).Observe(elapsed.Seconds())
	}
	if o.logger == nil {
		return
	}

	attrs := []any{"op", op, "collection", o.collection, "duration", elapsed}
	if err != nil {
		o.logger.Warn("pieces call failed", append(attrs, "error", err)...)
		return
	}
	o.logger.Debug("pieces call completed", attrs...)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
