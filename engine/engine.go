// Package engine wires all Seeker subsystems together. It creates the
// extension registry, job registry, event hub, middleware chain, and
// runner, and provides the Submit/Cancel/Subscribe operations.
//
// This package exists to break the import cycle: the root seeker package
// defines Entity (imported by job, stream, etc.) and so cannot import
// those packages back. The engine package sits above all subsystem
// packages and below the application layer.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/seeker"
	"github.com/xraph/seeker/admission"
	"github.com/xraph/seeker/ext"
	"github.com/xraph/seeker/failover"
	"github.com/xraph/seeker/id"
	"github.com/xraph/seeker/job"
	mw "github.com/xraph/seeker/middleware"
	"github.com/xraph/seeker/observability"
	"github.com/xraph/seeker/stream"
	"github.com/xraph/seeker/worker"
)

// Engine wraps an Orchestrator with typed subsystem access.
// Use Build() to create one from an Orchestrator.
type Engine struct {
	o          *seeker.Orchestrator
	extensions *ext.Registry
	registry   *job.Registry
	jobStore   job.Store
	hub        *stream.Hub
	runner     *worker.Runner
	mws        []mw.Middleware
	logger     *slog.Logger

	// OpenTelemetry tracer provider (optional; nil means use global).
	tracerProvider trace.TracerProvider

	// Prometheus registerer for the metrics extension (optional; nil
	// means the default registerer).
	promRegisterer prometheus.Registerer
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.extensions.Register(e)
	}
}

// WithMiddleware adds middleware to the engine's chain, after the
// default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// When set, the tracing middleware uses this provider instead of the
// global otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithPrometheusRegisterer sets the Prometheus registerer used by the
// built-in metrics extension. Pass prometheus.NewRegistry() in tests to
// avoid duplicate registration panics.
func WithPrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(eng *Engine) {
		eng.promRegisterer = reg
	}
}

// Build creates an Engine from an existing Orchestrator.
// The Orchestrator's store must implement job.Store.
func Build(o *seeker.Orchestrator, opts ...Option) (*Engine, error) {
	logger := o.Logger()
	st := o.Store()

	if st == nil {
		return nil, seeker.ErrNoStore
	}
	js, ok := st.(job.Store)
	if !ok {
		return nil, fmt.Errorf("seeker: store does not implement job.Store")
	}

	eng := &Engine{
		o:          o,
		extensions: ext.NewRegistry(logger),
		registry:   job.NewRegistry(),
		jobStore:   js,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(eng)
	}

	config := o.Config()

	// Event hub: per-job multicast channels with heartbeats.
	eng.hub = stream.NewHub(logger,
		stream.WithBufferSize(config.SubscriberBuffer),
		stream.WithHeartbeatInterval(config.HeartbeatInterval),
	)
	eng.extensions.Register(eng.hub)

	// Lifecycle metrics extension.
	reg := eng.promRegisterer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metrics := observability.NewMetricsExtensionWithRegisterer(reg)
	metrics.ObserveStreamDrops(func() float64 {
		return float64(eng.hub.Stats().TotalDropped)
	})
	eng.extensions.Register(metrics)

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracer := eng.tracerProvider.Tracer("github.com/xraph/seeker")
		tracingMw = mw.TracingWithTracer(tracer)
	} else {
		tracingMw = mw.Tracing()
	}

	// Default middleware stack: recover → tracing → logging → timeout.
	defaultMws := []mw.Middleware{
		mw.Recover(logger),
		tracingMw,
		mw.Logging(logger),
		mw.Timeout(logger, config.OperationTimeout),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)

	executor := worker.NewExecutor(eng.registry, eng.extensions, eng.jobStore, logger, allMws...)

	runnerOpts := []worker.RunnerOption{
		worker.WithShutdownTimeout(config.ShutdownTimeout),
	}
	admitCfg := admission.Config{
		MaxPerOwner: config.MaxActive,
		SubmitRate:  config.SubmitRate,
		SubmitBurst: config.SubmitBurst,
	}
	if admitCfg.Enabled() {
		runnerOpts = append(runnerOpts, worker.WithAdmission(admission.NewController(admitCfg)))
	}
	eng.runner = worker.NewRunner(eng.jobStore, executor, eng.extensions, logger, runnerOpts...)

	// Wire back into the Orchestrator.
	o.SetRunner(eng.runner)
	o.SetExtensions(eng.extensions)

	return eng, nil
}

// Register registers a typed job definition with the engine.
func Register[P any](eng *Engine, def *job.Definition[P]) {
	job.RegisterDefinition(eng.registry, def)
}

// RegisterHandler registers a raw handler for a job type.
func (eng *Engine) RegisterHandler(t job.Type, h job.HandlerFunc) {
	eng.registry.Register(t, h)
}

// SubmitRequest describes a job submission.
type SubmitRequest struct {
	Type    job.Type
	Query   string
	Params  []byte
	OwnerID string

	// Timeout overrides the configured operation deadline for this job.
	// Zero keeps the default.
	Timeout time.Duration
}

// Submit validates, persists, and dispatches a new job. The returned
// job is in pending status; execution proceeds asynchronously.
func (eng *Engine) Submit(ctx context.Context, req SubmitRequest) (*job.Job, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, seeker.ErrEmptyQuery
	}
	if _, ok := eng.registry.Get(req.Type); !ok {
		return nil, fmt.Errorf("%w: %q", seeker.ErrUnknownJobType, req.Type)
	}

	j := &job.Job{
		Entity:  seeker.NewEntity(),
		ID:      id.NewJobID(),
		Type:    req.Type,
		Query:   req.Query,
		Params:  req.Params,
		OwnerID: req.OwnerID,
		Status:  job.StatusPending,
		Timeout: req.Timeout,
	}

	// The admission slot is held from here until the run goroutine
	// finishes; Forfeit returns it on any pre-dispatch failure.
	if err := eng.runner.Admit(j.OwnerID); err != nil {
		return nil, err
	}
	if err := eng.jobStore.CreateJob(ctx, j); err != nil {
		eng.runner.Forfeit(j.OwnerID)
		return nil, err
	}
	eng.extensions.EmitJobCreated(ctx, j)

	if err := eng.runner.Dispatch(j); err != nil {
		eng.runner.Forfeit(j.OwnerID)
		return nil, err
	}
	return j, nil
}

// Job retrieves a job by ID.
func (eng *Engine) Job(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return eng.jobStore.GetJob(ctx, jobID)
}

// Jobs returns an owner's jobs, most recent first.
func (eng *Engine) Jobs(ctx context.Context, ownerID string, opts job.ListOpts) ([]*job.Job, error) {
	return eng.jobStore.ListJobs(ctx, ownerID, opts)
}

// ActiveJobs returns an owner's non-terminal jobs, most recent first.
func (eng *Engine) ActiveJobs(ctx context.Context, ownerID string) ([]*job.Job, error) {
	return eng.jobStore.ListActive(ctx, ownerID)
}

// Cancel requests cancellation of a job. It returns true exactly once
// per job: the call that wins the cancellation. Later calls, and calls
// against terminal jobs, return false.
func (eng *Engine) Cancel(ctx context.Context, jobID id.JobID) (bool, error) {
	return eng.runner.RequestCancel(ctx, jobID)
}

// Subscribe attaches a new subscriber to a job's event stream. For jobs
// already in a terminal status the subscriber receives one synthetic
// terminal event and then end-of-stream.
func (eng *Engine) Subscribe(ctx context.Context, jobID id.JobID) (*stream.Subscriber, error) {
	j, err := eng.jobStore.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	subID := id.NewSubscriberID().String()
	if j.Status.Terminal() {
		return eng.hub.Replay(subID, j), nil
	}
	return eng.hub.Subscribe(j.ID.String(), subID), nil
}

// Unsubscribe detaches a subscriber from a job's event stream. Other
// subscribers on the same job are unaffected.
func (eng *Engine) Unsubscribe(jobID id.JobID, sub *stream.Subscriber) {
	eng.hub.Unsubscribe(jobID.String(), sub.ID())
}

// Failover builds a provider failover sequencer over the given attempts
// using the engine's configured per-attempt timeout. Handlers use it to
// race an ordered provider chain for a single logical stream.
func (eng *Engine) Failover(attempts ...failover.Attempt) *failover.Sequencer {
	return failover.New(eng.logger, attempts,
		failover.WithAttemptTimeout(eng.o.Config().AttemptTimeout),
	)
}

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Registry returns the job registry.
func (eng *Engine) Registry() *job.Registry { return eng.registry }

// Hub returns the event hub.
func (eng *Engine) Hub() *stream.Hub { return eng.hub }

// Runner returns the job runner.
func (eng *Engine) Runner() *worker.Runner { return eng.runner }

// Orchestrator returns the underlying Orchestrator.
func (eng *Engine) Orchestrator() *seeker.Orchestrator { return eng.o }
