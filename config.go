package seeker

import "time"

// Config holds configuration for the Orchestrator.
type Config struct {
	// HeartbeatInterval is how often a heartbeat event is injected into
	// each live job stream, independent of domain activity.
	HeartbeatInterval time.Duration

	// SubscriberBuffer is the per-subscriber event buffer size. When a
	// subscriber's buffer is full, new events for that subscriber are
	// dropped (reject-new); terminal events are exempt and evict the
	// oldest buffered event instead.
	SubscriberBuffer int

	// OperationTimeout is the maximum duration a job's underlying
	// operation may run before its context is cancelled. Zero disables
	// the deadline.
	OperationTimeout time.Duration

	// AttemptTimeout is the per-attempt timeout used by the provider
	// failover sequencer.
	AttemptTimeout time.Duration

	// StreamTimeout is the hard deadline on a single streaming
	// connection, after which it is force-terminated with a failure
	// event rather than left hanging.
	StreamTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	// before active jobs are cancelled.
	ShutdownTimeout time.Duration

	// MaxActive caps concurrently running jobs per owner. Zero preserves
	// the unbounded behavior.
	MaxActive int

	// SubmitRate is the maximum sustained job submissions per second per
	// owner. Zero disables rate limiting.
	SubmitRate float64

	// SubmitBurst is the burst size for the submission rate limiter.
	// Defaults to 1 if SubmitRate is set but SubmitBurst is zero.
	SubmitBurst int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 15 * time.Second,
		SubscriberBuffer:  64,
		OperationTimeout:  10 * time.Minute,
		AttemptTimeout:    30 * time.Second,
		StreamTimeout:     15 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
		MaxActive:         0,
	}
}
