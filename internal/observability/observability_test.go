package observability

import (
	"bytes"
	"context"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	entryStatusSuccess = "success"
	entryStatusError   = "error"
)

func TestNoopLogger(t *testing.T) {
	logger := NoopLogger()
	t.Run("does not panic", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("noop logger panicked: %v", r)
			}
		}()
		logger.Debug("test message", "arg1", "arg2")
		logger.Info("test message", "arg1", "arg2")
		logger.Warn("test message", "arg1", "arg2")
		logger.Error("test message", "arg1", "arg2")
	})
}

func TestSplitOperation(t *testing.T) {
	cases := []struct{ op, collection, action string }{
		{"glucose_readings.find", "glucose_readings", "find"},
		{"users.create", "users", "create"},
		{"a.b.delete", "a.b", "delete"},
		{"bare", "", "bare"},
	}
	for _, tc := range cases {
		c, a := SplitOperation(tc.op)
		if c != tc.collection || a != tc.action {
			t.Fatalf("%s: got (%q, %q)", tc.op, c, a)
		}
	}
}

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if recorder.Name() == "" {
		t.Fatalf("expected recorder to have export name")
	}
	ctx := context.Background()
	recorder.Observe(ctx, "users.create", true, 10*time.Millisecond)
	recorder.Observe(ctx, "users.create", false, 30*time.Millisecond)
	recorder.Observe(ctx, "glucose_readings.create", true, 20*time.Millisecond)
	recorder.Observe(ctx, "glucose_readings.find", true, time.Millisecond)
	recorder.Observe(ctx, "", true, time.Millisecond)

	snapshot := recorder.Snapshot()
	users := snapshot.Stats("users.create")
	if users.Success != 1 || users.Errors != 1 || users.Calls() != 2 {
		t.Fatalf("unexpected users.create stats %+v", users)
	}
	if users.MaxMS != 30 || users.MeanMS() != 20 {
		t.Fatalf("unexpected users.create timings %+v", users)
	}
	if got := snapshot.Actions["create"]; got.Calls() != 3 || got.Errors != 1 || got.TotalMS != 60 {
		t.Fatalf("unexpected create totals %+v", got)
	}
	if len(snapshot.Collections["glucose_readings"]) != 2 {
		t.Fatalf("expected two readings actions, got %+v", snapshot.Collections["glucose_readings"])
	}
	if _, ok := snapshot.Collections[""]; ok {
		t.Fatalf("expected empty operation to be ignored")
	}
	if (OperationStats{}).MeanMS() != 0 {
		t.Fatalf("expected zero mean without calls")
	}

	if v := expvar.Get(recorder.Name()); v == nil {
		t.Fatalf("expected expvar export to be registered")
	} else if !strings.Contains(v.String(), "glucose_readings") {
		t.Fatalf("expected expvar output to contain collection: %s", v.String())
	}
}

func TestJSONTraceTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "users.find")
	span.End(nil)
	span.End(errors.New("ignored"))
	_, failed := tracer.Start(context.Background(), "glucose_runs.update")
	failed.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected two span entries, got %d", len(entries))
	}
	if e := entries[0]; e.Operation != "users.find" || e.Collection != "users" || e.Action != "find" || e.Status != entryStatusSuccess {
		t.Fatalf("unexpected span entry: %+v", e)
	}
	if entries[1].Status != entryStatusError || entries[1].Error != "boom" {
		t.Fatalf("unexpected failed span entry: %+v", entries[1])
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Fatalf("expected one JSON line per span, got %d: %q", lines, buf.String())
	}
	if !strings.Contains(buf.String(), `"operation":"users.find","collection":"users","action":"find"`) {
		t.Fatalf("expected JSON output to contain operation: %q", buf.String())
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "glucose_readings.create", true, 2*time.Millisecond)
	rec.Observe(ctx, "glucose_readings.create", true, 3*time.Millisecond)
	rec.Observe(ctx, "glucose_readings.create", false, time.Millisecond)

	if got := testutil.ToFloat64(rec.operations.WithLabelValues("glucose_readings", "create", entryStatusSuccess)); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("glucose_readings", "create", entryStatusError)); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}

	again, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("re-register should reuse collectors: %v", err)
	}
	again.Observe(ctx, "glucose_readings.create", true, time.Millisecond)
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("glucose_readings", "create", entryStatusSuccess)); got != 3 {
		t.Fatalf("expected shared collector, got %v", got)
	}

	var text bytes.Buffer
	if err := WriteText(&text, reg); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if !strings.Contains(text.String(), `glucotrack_store_operations_total{action="create",collection="glucose_readings",status="success"} 3`) {
		t.Fatalf("unexpected exposition:\n%s", text.String())
	}
}

type countingRecorder struct{ n int }

func (c *countingRecorder) Observe(context.Context, string, bool, time.Duration) { c.n++ }

func TestInstrumentationRun(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	metrics := &countingRecorder{}
	tracer := NewJSONTracer(nil)
	inst := Instrumentation{
		Logger:  NewZapLogger(zap.New(core)),
		Metrics: Fanout{metrics, nil},
		Tracer:  tracer,
	}

	if err := inst.Run(context.Background(), "ok", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := inst.Run(context.Background(), "fail", func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected fn error to pass through, got %v", err)
	}
	if metrics.n != 2 {
		t.Fatalf("expected two observations, got %d", metrics.n)
	}
	if len(tracer.Entries()) != 2 {
		t.Fatalf("expected two spans")
	}
	if logs.FilterMessage("operation failed").Len() != 1 {
		t.Fatalf("expected failure to be logged, got %v", logs.All())
	}

	var zero Instrumentation
	if err := zero.Run(context.Background(), "noop", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("zero instrumentation run: %v", err)
	}
}

func TestNewProductionLogger(t *testing.T) {
	if _, err := NewProductionLogger("debug", "console"); err != nil {
		t.Fatalf("console logger: %v", err)
	}
	if _, err := NewProductionLogger("", "json"); err != nil {
		t.Fatalf("default logger: %v", err)
	}
	if _, err := NewProductionLogger("chatty", "json"); err == nil {
		t.Fatalf("expected invalid level error")
	}
	var buf bytes.Buffer
	logger, err := NewWriterLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("writer logger: %v", err)
	}
	NewZapLogger(logger).Info("hidden")
	NewZapLogger(logger).Warn("shown", "key", "value")
	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, `"key":"value"`) {
		t.Fatalf("unexpected writer logger output %q", out)
	}
	if NewZapLogger(nil) == nil {
		t.Fatalf("expected noop logger for nil zap logger")
	}
}
