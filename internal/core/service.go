package core

import (
	"context"
	"fmt"

	"glucotrack/internal/ident"
	"glucotrack/internal/kv"
	"glucotrack/internal/observability"
	"glucotrack/internal/repository"
	"glucotrack/pkg/domain"
)

// Service is the process-wide access point to every repository. Construct it
// once and share the handle; each collection key has exactly one repository.
type Service struct {
	store       *kv.Adapter
	logger      Logger
	clock       ident.Clock
	users       *Users
	readings    *Readings
	runs        *Runs
	estimates   *Estimates
	labResults  *LabResults
	preferences *Preferences
	collections map[Collection]repository.Collection
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	clock   ident.Clock
	newID   func() string
}

// WithLogger routes store and repository diagnostics to logger.
func WithLogger(logger Logger) Option {
	return func(o *serviceOptions) { o.logger = logger }
}

// WithMetricsRecorder records per-operation outcomes and latency.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(o *serviceOptions) { o.metrics = rec }
}

// WithTracer wraps repository operations in spans.
func WithTracer(tracer Tracer) Option {
	return func(o *serviceOptions) { o.tracer = tracer }
}

// WithClock overrides the time source for timestamps and defaults.
func WithClock(clock ident.Clock) Option {
	return func(o *serviceOptions) { o.clock = clock }
}

// WithIDGenerator overrides entity id generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *serviceOptions) { o.newID = fn }
}

// NewService wraps backend, ensures every collection key holds at least an
// empty array, and builds the entity repositories.
func NewService(ctx context.Context, backend kv.Backend, opts ...Option) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("store backend required")
	}
	o := serviceOptions{clock: ident.SystemClock{}, newID: ident.GenerateID}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	inst := observability.Instrumentation{Logger: o.logger, Metrics: o.metrics, Tracer: o.tracer}.Normalize()
	if o.clock == nil {
		o.clock = ident.SystemClock{}
	}
	store := kv.NewAdapter(backend, kv.WithLogger(inst.Logger))

	keys := make([]string, 0, len(domain.Collections()))
	for _, c := range domain.Collections() {
		keys = append(keys, string(c))
	}
	if err := store.InitializeDefaults(ctx, keys); err != nil {
		return nil, fmt.Errorf("initialize collections: %w", err)
	}

	repoOpts := []repository.Option{
		repository.WithClock(o.clock),
		repository.WithIDGenerator(o.newID),
		repository.WithInstrumentation(inst),
	}
	s := &Service{store: store, logger: inst.Logger, clock: o.clock}
	s.users = &Users{repository.New[User](string(domain.CollectionUsers), store, repoOpts...)}
	s.readings = &Readings{Repository: repository.New[GlucoseReading](string(domain.CollectionGlucoseReadings), store, repoOpts...), clock: o.clock}
	s.estimates = &Estimates{repository.New[A1CEstimate](string(domain.CollectionA1CEstimates), store, repoOpts...)}
	s.runs = &Runs{
		Repository: repository.New[GlucoseRun](string(domain.CollectionGlucoseRuns), store, repoOpts...),
		readings:   s.readings,
		estimates:  s.estimates,
	}
	s.labResults = &LabResults{Repository: repository.New[LabResult](string(domain.CollectionLabResults), store, repoOpts...), clock: o.clock}
	s.preferences = &Preferences{repository.New[UserPreferences](string(domain.CollectionPreferences), store, repoOpts...)}
	s.collections = map[Collection]repository.Collection{
		domain.CollectionUsers:           s.users,
		domain.CollectionGlucoseReadings: s.readings,
		domain.CollectionGlucoseRuns:     s.runs,
		domain.CollectionA1CEstimates:    s.estimates,
		domain.CollectionLabResults:      s.labResults,
		domain.CollectionPreferences:     s.preferences,
	}
	s.logger.Debug("service ready", "driver", string(store.Driver()))
	return s, nil
}

// Users returns the user repository.
func (s *Service) Users() *Users { return s.users }

// Readings returns the glucose reading repository.
func (s *Service) Readings() *Readings { return s.readings }

// Runs returns the glucose run repository.
func (s *Service) Runs() *Runs { return s.runs }

// Estimates returns the A1C estimate repository.
func (s *Service) Estimates() *Estimates { return s.estimates }

// LabResults returns the lab result repository.
func (s *Service) LabResults() *LabResults { return s.labResults }

// Preferences returns the user preferences repository.
func (s *Service) Preferences() *Preferences { return s.preferences }

// Collection returns a type-erased view of the repository stored under name.
func (s *Service) Collection(name string) (repository.Collection, bool) {
	c, ok := domain.ParseCollection(name)
	if !ok {
		return nil, false
	}
	return s.collections[c], true
}

// Store returns the JSON adapter the repositories persist through.
func (s *Service) Store() *kv.Adapter { return s.store }

// Close closes the underlying backend.
func (s *Service) Close() error { return s.store.Close() }
