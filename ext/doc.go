// Package ext defines the extension system for Seeker.
//
// Extensions are notified of job lifecycle events and can react to them —
// fanning events out to live subscribers, recording metrics, writing audit
// logs, etc. Each lifecycle hook is a separate interface so extensions opt
// in only to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
//	    log.Printf("job %s completed in %s", j.ID, elapsed)
//	    return nil
//	}
//
// # Job Lifecycle Hooks
//
//   - [JobCreated] — job was accepted and persisted
//   - [JobStarted] — runner began executing the job
//   - [JobProgress] — running job reported a progress update
//   - [JobPartialResult] — running job emitted an intermediate result
//   - [JobCompleted] — job finished successfully
//   - [JobFailed] — job failed terminally
//   - [JobCancelled] — job was cancelled before or during execution
//
// # Other Hooks
//
//   - [Shutdown] — the orchestrator is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package ext
