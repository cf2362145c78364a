package observability

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Repository operations are named "<collection>.<action>", e.g.
// "glucose_readings.find". Both exporters break them apart on the last dot.
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// SplitOperation returns the collection and action of a repository operation
// name. Names without a dot have no collection.
func SplitOperation(operation string) (collection, action string) {
	i := strings.LastIndexByte(operation, '.')
	if i < 0 {
		return "", operation
	}
	return operation[:i], operation[i+1:]
}

func outcome(success bool) string {
	if success {
		return outcomeSuccess
	}
	return outcomeError
}

// OperationStats aggregates the calls of one action, on one collection or
// across all of them.
type OperationStats struct {
	Success int64   `json:"success"`
	Errors  int64   `json:"errors"`
	TotalMS float64 `json:"total_ms"`
	MaxMS   float64 `json:"max_ms"`
}

// Calls is the number of observations.
func (s OperationStats) Calls() int64 { return s.Success + s.Errors }

// MeanMS is the average duration, zero when nothing was observed.
func (s OperationStats) MeanMS() float64 {
	if s.Calls() == 0 {
		return 0
	}
	return s.TotalMS / float64(s.Calls())
}

func (s *OperationStats) add(success bool, ms float64) {
	if success {
		s.Success++
	} else {
		s.Errors++
	}
	s.TotalMS += ms
	if ms > s.MaxMS {
		s.MaxMS = ms
	}
}

// ExpvarMetricsSnapshot is a copy of an ExpvarMetricsRecorder's counters.
// Collections is keyed by collection, then action; Actions sums each action
// over every collection.
type ExpvarMetricsSnapshot struct {
	Collections map[string]map[string]OperationStats `json:"collections"`
	Actions     map[string]OperationStats            `json:"actions"`
	RecordedAt  time.Time                            `json:"recorded_at"`
}

// Stats returns the counters for a full "<collection>.<action>" name.
func (s ExpvarMetricsSnapshot) Stats(operation string) OperationStats {
	collection, action := SplitOperation(operation)
	return s.Collections[collection][action]
}

var expvarSeq uint64

// ExpvarMetricsRecorder keeps per-collection and per-action counters and
// publishes their snapshot as an expvar variable.
type ExpvarMetricsRecorder struct {
	name string

	mu          sync.Mutex
	collections map[string]map[string]*OperationStats
	actions     map[string]*OperationStats
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated glucotrack_store_metrics_<n> name when name is empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("glucotrack_store_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	r := &ExpvarMetricsRecorder{
		name:        name,
		collections: make(map[string]map[string]*OperationStats),
		actions:     make(map[string]*OperationStats),
	}
	expvar.Publish(name, expvar.Func(func() any { return r.Snapshot() }))
	return r
}

// Name is the expvar variable name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Observe implements MetricsRecorder. Empty operation names are dropped.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	collection, action := SplitOperation(operation)
	ms := float64(duration) / float64(time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	byAction, ok := r.collections[collection]
	if !ok {
		byAction = make(map[string]*OperationStats)
		r.collections[collection] = byAction
	}
	statsFor(byAction, action).add(success, ms)
	statsFor(r.actions, action).add(success, ms)
}

func statsFor(m map[string]*OperationStats, action string) *OperationStats {
	s, ok := m[action]
	if !ok {
		s = &OperationStats{}
		m[action] = s
	}
	return s
}

// Snapshot copies the current counters.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := ExpvarMetricsSnapshot{
		Collections: make(map[string]map[string]OperationStats, len(r.collections)),
		Actions:     make(map[string]OperationStats, len(r.actions)),
		RecordedAt:  time.Now().UTC(),
	}
	for collection, byAction := range r.collections {
		cp := make(map[string]OperationStats, len(byAction))
		for action, s := range byAction {
			cp[action] = *s
		}
		out.Collections[collection] = cp
	}
	for action, s := range r.actions {
		out.Actions[action] = *s
	}
	return out
}

// JSONTraceEntry is one finished span.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Collection string    `json:"collection,omitempty"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS float64   `json:"duration_ms"`
}

// JSONTraceTracer writes each finished span as a JSON line and keeps it for
// Entries.
type JSONTraceTracer struct {
	mu      sync.Mutex
	w       io.Writer
	entries []JSONTraceEntry
}

// NewJSONTracer returns a tracer writing to w. With a nil w spans are only
// retained.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	return &JSONTraceTracer{w: w}
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	collection, action := SplitOperation(operation)
	return ctx, &jsonSpan{
		tracer: t,
		entry: JSONTraceEntry{
			Operation:  operation,
			Collection: collection,
			Action:     action,
			StartedAt:  time.Now().UTC(),
		},
	}
}

// Entries returns the spans finished so far, in completion order.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

func (t *JSONTraceTracer) finish(entry JSONTraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	if t.w == nil {
		return
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = t.w.Write(append(line, '\n'))
}

type jsonSpan struct {
	tracer *JSONTraceTracer
	entry  JSONTraceEntry
	once   sync.Once
}

// End records the span once; later calls are ignored.
func (s *jsonSpan) End(err error) {
	s.once.Do(func() {
		e := s.entry
		e.DurationMS = float64(time.Since(e.StartedAt)) / float64(time.Millisecond)
		e.Status = outcome(err == nil)
		if err != nil {
			e.Error = err.Error()
		}
		s.tracer.finish(e)
	})
}
