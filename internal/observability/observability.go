// Package observability carries the logging, metrics and tracing hooks shared
// by the store adapter, the repositories and the service facade.
package observability

import (
	"context"
	"time"
)

// Logger is the structured logger used across the data layer. Arguments are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsRecorder observes the outcome and duration of an operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is finished with the operation's error, if any.
type TraceSpan interface {
	End(err error)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// NoopLogger returns a Logger that discards everything.
func NoopLogger() Logger { return noopLogger{} }

// NoopMetrics returns a MetricsRecorder that discards observations.
func NoopMetrics() MetricsRecorder { return noopMetrics{} }

// NoopTracer returns a Tracer whose spans do nothing.
func NoopTracer() Tracer { return noopTracer{} }

// Instrumentation bundles the hooks one component reports to. Nil fields are
// replaced by no-op implementations in Normalize.
type Instrumentation struct {
	Logger  Logger
	Metrics MetricsRecorder
	Tracer  Tracer
}

// Normalize fills unset hooks with no-ops.
func (i Instrumentation) Normalize() Instrumentation {
	if i.Logger == nil {
		i.Logger = noopLogger{}
	}
	if i.Metrics == nil {
		i.Metrics = noopMetrics{}
	}
	if i.Tracer == nil {
		i.Tracer = noopTracer{}
	}
	return i
}

// Run executes fn inside a span, records metrics, and logs failures at debug
// level. The returned error is fn's error unchanged.
func (i Instrumentation) Run(ctx context.Context, operation string, fn func(context.Context) error) error {
	i = i.Normalize()
	ctx, span := i.Tracer.Start(ctx, operation)
	started := time.Now()
	err := fn(ctx)
	i.Metrics.Observe(ctx, operation, err == nil, time.Since(started))
	span.End(err)
	if err != nil {
		i.Logger.Debug("operation failed", "operation", operation, "error", err)
	}
	return err
}
