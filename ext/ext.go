package ext

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xraph/seeker/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobCreated is called after a job is successfully persisted.
type JobCreated interface {
	OnJobCreated(ctx context.Context, j *job.Job) error
}

// JobStarted is called when a runner begins executing a job.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobProgress is called when a running job reports progress.
type JobProgress interface {
	OnJobProgress(ctx context.Context, j *job.Job, progress int, phase string) error
}

// JobPartialResult is called when a running job emits an intermediate
// result chunk before completion.
type JobPartialResult interface {
	OnJobPartialResult(ctx context.Context, j *job.Job, data json.RawMessage) error
}

// JobCompleted is called after a job finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobFailed is called when a job fails terminally.
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// JobCancelled is called after a job is cancelled, whether it was still
// pending or interrupted mid-run.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j *job.Job) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
