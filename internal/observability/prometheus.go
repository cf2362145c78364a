package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// PrometheusMetricsRecorder exports operation counts and latencies as
// Prometheus collectors labelled by collection and action, the same split
// the expvar recorder uses.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the recorder's collectors with reg.
// A nil registerer uses prometheus.DefaultRegisterer. Collectors that are
// already registered are reused.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glucotrack",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Data-layer operations by collection, action and outcome.",
	}, []string{"collection", "action", "status"})
	lat := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "glucotrack",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Data-layer operation latency.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"collection", "action"})

	var err error
	if ops, err = registerOrReuse(reg, ops); err != nil {
		return nil, err
	}
	if lat, err = registerOrReuse(reg, lat); err != nil {
		return nil, err
	}
	return &PrometheusMetricsRecorder{operations: ops, latency: lat}, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	collection, action := SplitOperation(operation)
	r.operations.WithLabelValues(collection, action, outcome(success)).Inc()
	r.latency.WithLabelValues(collection, action).Observe(duration.Seconds())
}

// Fanout forwards observations to every recorder.
type Fanout []MetricsRecorder

// Observe implements MetricsRecorder.
func (f Fanout) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range f {
		if r != nil {
			r.Observe(ctx, operation, success, duration)
		}
	}
}

// WriteText writes every family gathered from g in the Prometheus text
// exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
