package seeker

import (
	"context"
	"log/slog"
	"time"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// Storer is the minimal store interface held by the Orchestrator.
// It covers lifecycle operations only. The full composite interface
// (store.Store) is used in subsystem layers that don't create import
// cycles. Implementations satisfy store.Store which embeds the job
// store contract.
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// taskRunner is an internal interface for the job runner lifecycle.
type taskRunner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// extensionEmitter is an internal interface for extension lifecycle events.
type extensionEmitter interface {
	EmitShutdown(ctx context.Context)
}

// Orchestrator is the central coordinator for search/analysis job
// execution and live event distribution.
//
// Create one with New() and functional options. The Orchestrator holds
// references to subsystem components via internal interfaces to avoid
// import cycles. Use engine.Build to wire everything together.
type Orchestrator struct {
	config     Config
	logger     *slog.Logger
	store      Storer
	extensions extensionEmitter
	runner     taskRunner

	// started tracks whether Start has been called.
	started bool
}

// New creates a new Orchestrator with the given options.
func New(opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Logger returns the orchestrator's logger.
func (o *Orchestrator) Logger() *slog.Logger { return o.logger }

// Store returns the orchestrator's store.
func (o *Orchestrator) Store() Storer { return o.store }

// Config returns a copy of the orchestrator's configuration.
func (o *Orchestrator) Config() Config { return o.config }

// SetRunner sets the job runner (called by the engine package).
func (o *Orchestrator) SetRunner(r taskRunner) { o.runner = r }

// SetExtensions sets the extension emitter (called by the engine package).
func (o *Orchestrator) SetExtensions(e extensionEmitter) { o.extensions = e }

// Start begins accepting job dispatches.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.store == nil {
		return ErrNoStore
	}
	if o.runner == nil {
		return ErrNoRunner
	}
	if err := o.runner.Start(ctx); err != nil {
		return err
	}
	o.started = true
	return nil
}

// Stop gracefully shuts down the orchestrator. Active jobs are given
// until the shutdown deadline before their contexts are cancelled.
func (o *Orchestrator) Stop(ctx context.Context) error {
	if o.runner != nil && o.started {
		if err := o.runner.Stop(ctx); err != nil {
			o.logger.Error("runner stop error", "error", err)
		}
	}
	if o.extensions != nil {
		o.extensions.EmitShutdown(ctx)
	}
	if o.store != nil {
		return o.store.Close()
	}
	return nil
}

// WithLogger sets the structured logger for the orchestrator.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) error {
		o.logger = l
		return nil
	}
}

// WithStore sets the persistence backend for the orchestrator.
// The store must implement Storer at minimum; typically it will be a
// store.Store which embeds the job store contract.
func WithStore(s Storer) Option {
	return func(o *Orchestrator) error {
		o.store = s
		return nil
	}
}

// WithHeartbeatInterval sets the stream heartbeat cadence.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(o *Orchestrator) error {
		o.config.HeartbeatInterval = d
		return nil
	}
}

// WithSubscriberBuffer sets the per-subscriber event buffer size.
func WithSubscriberBuffer(n int) Option {
	return func(o *Orchestrator) error {
		o.config.SubscriberBuffer = n
		return nil
	}
}

// WithOperationTimeout sets the per-job operation deadline.
func WithOperationTimeout(d time.Duration) Option {
	return func(o *Orchestrator) error {
		o.config.OperationTimeout = d
		return nil
	}
}

// WithAttemptTimeout sets the provider failover per-attempt timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *Orchestrator) error {
		o.config.AttemptTimeout = d
		return nil
	}
}

// WithStreamTimeout sets the hard deadline on streaming connections.
func WithStreamTimeout(d time.Duration) Option {
	return func(o *Orchestrator) error {
		o.config.StreamTimeout = d
		return nil
	}
}

// WithShutdownTimeout sets the graceful shutdown deadline.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Orchestrator) error {
		o.config.ShutdownTimeout = d
		return nil
	}
}

// WithMaxActive caps concurrently running jobs per owner.
// Zero preserves the unbounded behavior.
func WithMaxActive(n int) Option {
	return func(o *Orchestrator) error {
		o.config.MaxActive = n
		return nil
	}
}

// WithSubmitRate sets the per-owner submission rate limit and burst.
func WithSubmitRate(perSecond float64, burst int) Option {
	return func(o *Orchestrator) error {
		o.config.SubmitRate = perSecond
		o.config.SubmitBurst = burst
		return nil
	}
}
