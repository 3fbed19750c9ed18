package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/seeker"
	"github.com/xraph/seeker/admission"
	"github.com/xraph/seeker/ext"
	"github.com/xraph/seeker/id"
	"github.com/xraph/seeker/job"
)

// DefaultShutdownTimeout bounds graceful shutdown when Stop's context
// carries no deadline of its own.
const DefaultShutdownTimeout = 30 * time.Second

// Runner executes dispatched jobs, one goroutine per job, and tracks
// their cancel functions so individual jobs can be interrupted.
type Runner struct {
	store      job.Store
	executor   *Executor
	extensions *ext.Registry
	logger     *slog.Logger

	// admission is optional; nil means every submission is accepted.
	admission       *admission.Controller
	shutdownTimeout time.Duration

	mu        sync.Mutex
	running   bool
	active    map[string]context.CancelFunc
	requested map[string]struct{}

	wg         sync.WaitGroup
	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithAdmission gates dispatches through the given controller.
func WithAdmission(c *admission.Controller) RunnerOption {
	return func(r *Runner) { r.admission = c }
}

// WithShutdownTimeout sets the graceful shutdown deadline.
func WithShutdownTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.shutdownTimeout = d }
}

// NewRunner creates a Runner.
func NewRunner(
	store job.Store,
	executor *Executor,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...RunnerOption,
) *Runner {
	r := &Runner{
		store:           store,
		executor:        executor,
		extensions:      extensions,
		logger:          logger,
		shutdownTimeout: DefaultShutdownTimeout,
		active:          make(map[string]context.CancelFunc),
		requested:       make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start makes the runner accept dispatches. It returns immediately.
func (r *Runner) Start(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}
	r.running = true
	r.baseCtx, r.baseCancel = context.WithCancel(context.Background())
	r.logger.Info("job runner started")
	return nil
}

// Stop waits for active jobs to finish. When the context deadline or the
// configured shutdown timeout expires first, remaining job contexts are
// cancelled and the jobs settle as cancelled.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	n := len(r.active)
	r.mu.Unlock()

	r.logger.Info("job runner stopping", slog.Int("active_jobs", n))

	if _, ok := ctx.Deadline(); !ok && r.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.shutdownTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("job runner stopped gracefully")
	case <-ctx.Done():
		r.logger.Warn("shutdown deadline reached, cancelling active jobs")
		r.cancelActiveJobs()
		r.wg.Wait()
	}

	if r.baseCancel != nil {
		r.baseCancel()
	}
	return nil
}

// Admit reserves an admission slot for a submission. Callers pair every
// successful Admit with exactly one dispatched job; the slot is released
// when that job's goroutine ends. With no controller configured every
// submission is admitted.
func (r *Runner) Admit(ownerID string) error {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()
	if !running {
		return seeker.ErrNotRunning
	}

	if r.admission != nil && !r.admission.Acquire(ownerID) {
		return seeker.ErrAdmissionDenied
	}
	return nil
}

// Forfeit returns an admission slot that will never be dispatched,
// e.g. when persisting the job failed after Admit.
func (r *Runner) Forfeit(ownerID string) {
	if r.admission != nil {
		r.admission.Release(ownerID)
	}
}

// Dispatch starts executing a job in its own goroutine. The job must
// already be persisted in pending state.
func (r *Runner) Dispatch(j *job.Job) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return seeker.ErrNotRunning
	}

	jobCtx, cancel := context.WithCancel(r.baseCtx)
	r.active[j.ID.String()] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer r.untrack(j.ID.String())
		defer cancel()
		if r.admission != nil {
			defer r.admission.Release(j.OwnerID)
		}

		if err := r.executor.Execute(jobCtx, j); err != nil {
			r.logger.Error("job execution error",
				slog.String("job_id", j.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}()

	return nil
}

// RequestCancel asks a job to stop. It returns true exactly once per
// job: the call that first registers the cancellation request. Later
// calls, and calls against already-terminal jobs, return false.
func (r *Runner) RequestCancel(ctx context.Context, jobID id.JobID) (bool, error) {
	j, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	if j.Status.Terminal() {
		return false, nil
	}

	key := jobID.String()

	r.mu.Lock()
	if _, dup := r.requested[key]; dup {
		r.mu.Unlock()
		return false, nil
	}
	r.requested[key] = struct{}{}
	cancel, tracked := r.active[key]
	r.mu.Unlock()

	if tracked {
		cancel()
	}

	// Jobs still pending have no running handler to interrupt: settle
	// them directly so a pre-dispatch cancel is immediate.
	if j.Status == job.StatusPending {
		updated, uErr := r.store.UpdateStatus(ctx, jobID, job.StatusUpdate{Status: job.StatusCancelled})
		if uErr == nil {
			r.extensions.EmitJobCancelled(ctx, updated)
		} else if !errors.Is(uErr, seeker.ErrJobTerminal) && !errors.Is(uErr, seeker.ErrInvalidStatus) {
			return true, uErr
		}
	}

	r.logger.Info("cancellation requested", slog.String("job_id", key))
	return true, nil
}

// ActiveCount returns the number of jobs currently executing.
func (r *Runner) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func (r *Runner) untrack(jobID string) {
	r.mu.Lock()
	delete(r.active, jobID)
	delete(r.requested, jobID)
	r.mu.Unlock()
}

func (r *Runner) cancelActiveJobs() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for jobID, cancel := range r.active {
		r.logger.Info("cancelling job", slog.String("job_id", jobID))
		cancel()
	}
}
