// Package worker provides the job execution engine — an Executor that
// drives a single job through its state machine, and a Runner that
// manages the goroutines executing dispatched jobs.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/seeker"
	"github.com/xraph/seeker/ext"
	"github.com/xraph/seeker/job"
	"github.com/xraph/seeker/middleware"
)

// Executor runs a single job through middleware and the registered
// handler, then writes the terminal status and emits lifecycle events.
//
// Every status write tolerates seeker.ErrJobTerminal: a job that was
// cancelled before or during execution already holds its terminal
// status, and the executor's write becomes a logged no-op.
type Executor struct {
	registry   *job.Registry
	extensions *ext.Registry
	store      job.Store
	mw         middleware.Middleware
	logger     *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(
	registry *job.Registry,
	extensions *ext.Registry,
	store job.Store,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	return &Executor{
		registry:   registry,
		extensions: extensions,
		store:      store,
		mw:         middleware.Chain(mws...),
		logger:     logger,
	}
}

// Execute runs a job to its terminal status.
// On success: marks completed with the handler's result, emits JobCompleted.
// On context cancellation: marks cancelled, emits JobCancelled.
// On any other failure (including deadline): marks failed, emits JobFailed.
func (e *Executor) Execute(ctx context.Context, j *job.Job) error {
	handler, ok := e.registry.Get(j.Type)
	if !ok {
		return e.fail(ctx, j, fmt.Errorf("%w: %s", seeker.ErrUnknownJobType, j.Type))
	}

	// Claim the job. A job cancelled before this point is already
	// terminal and must not run.
	running, err := e.store.UpdateStatus(ctx, j.ID, job.StatusUpdate{Status: job.StatusRunning})
	if err != nil {
		if errors.Is(err, seeker.ErrJobTerminal) {
			e.logger.Info("job already terminal, skipping execution",
				slog.String("job_id", j.ID.String()),
			)
			return nil
		}
		return fmt.Errorf("claim job %s: %w", j.ID, err)
	}
	j = running

	e.extensions.EmitJobStarted(ctx, j)

	start := time.Now()
	var result json.RawMessage

	terminal := func(ctx context.Context) error {
		out, handlerErr := handler(ctx, j, &progressReporter{exec: e, ctx: ctx, job: j})
		result = out
		return handlerErr
	}

	err = e.mw(ctx, j, terminal)
	elapsed := time.Since(start)

	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		// An accepted cancellation wins over whatever the handler
		// returned, even when the handler ignored its context.
		return e.cancel(ctx, j)
	case err == nil:
		return e.complete(ctx, j, result, elapsed)
	case errors.Is(err, context.Canceled):
		return e.cancel(ctx, j)
	default:
		return e.fail(ctx, j, err)
	}
}

// complete writes the completed status and emits JobCompleted.
func (e *Executor) complete(ctx context.Context, j *job.Job, result json.RawMessage, elapsed time.Duration) error {
	updated, err := e.store.UpdateStatus(detach(ctx), j.ID, job.StatusUpdate{
		Status: job.StatusCompleted,
		Result: result,
	})
	if err != nil {
		return e.logWriteError(j, job.StatusCompleted, err)
	}
	e.extensions.EmitJobCompleted(ctx, updated, elapsed)
	return nil
}

// cancel writes the cancelled status and emits JobCancelled.
func (e *Executor) cancel(ctx context.Context, j *job.Job) error {
	updated, err := e.store.UpdateStatus(detach(ctx), j.ID, job.StatusUpdate{Status: job.StatusCancelled})
	if err != nil {
		return e.logWriteError(j, job.StatusCancelled, err)
	}
	e.extensions.EmitJobCancelled(ctx, updated)
	e.logger.Info("job cancelled",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", string(j.Type)),
	)
	return nil
}

// fail writes the failed status and emits JobFailed.
func (e *Executor) fail(ctx context.Context, j *job.Job, jobErr error) error {
	updated, err := e.store.UpdateStatus(detach(ctx), j.ID, job.StatusUpdate{
		Status:       job.StatusFailed,
		ErrorMessage: jobErr.Error(),
	})
	if err != nil {
		return e.logWriteError(j, job.StatusFailed, err)
	}
	e.extensions.EmitJobFailed(ctx, updated, jobErr)
	e.logger.Warn("job failed",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", string(j.Type)),
		slog.String("error", jobErr.Error()),
	)
	return nil
}

// logWriteError downgrades ErrJobTerminal to a logged no-op; any other
// store error propagates.
func (e *Executor) logWriteError(j *job.Job, target job.Status, err error) error {
	if errors.Is(err, seeker.ErrJobTerminal) {
		e.logger.Info("terminal status already written, ignoring",
			slog.String("job_id", j.ID.String()),
			slog.String("target_status", string(target)),
		)
		return nil
	}
	e.logger.Error("failed to write job status",
		slog.String("job_id", j.ID.String()),
		slog.String("target_status", string(target)),
		slog.String("error", err.Error()),
	)
	return err
}

// detach strips cancellation from a context so terminal status writes
// still land after the job context is cancelled or times out.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// progressReporter feeds handler progress back through the store and
// extension registry. Updates against a terminal job are dropped.
type progressReporter struct {
	exec *Executor
	ctx  context.Context
	job  *job.Job
}

var _ job.Reporter = (*progressReporter)(nil)

func (r *progressReporter) Progress(progress int, phase string) {
	updated, err := r.exec.store.UpdateProgress(r.ctx, r.job.ID, progress, phase)
	if err != nil {
		if !errors.Is(err, seeker.ErrJobTerminal) {
			r.exec.logger.Warn("progress update failed",
				slog.String("job_id", r.job.ID.String()),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	r.exec.extensions.EmitJobProgress(r.ctx, updated, updated.Progress, updated.Phase)
}

func (r *progressReporter) Partial(data json.RawMessage) {
	r.exec.extensions.EmitJobPartialResult(r.ctx, r.job, data)
}
