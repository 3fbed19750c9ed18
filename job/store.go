package job

import (
	"context"
	"encoding/json"

	"github.com/xraph/seeker/id"
)

// ListOpts controls pagination for job list queries.
type ListOpts struct {
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
}

// CountOpts controls filtering for job count queries.
type CountOpts struct {
	// OwnerID filters by owner. Empty means all owners.
	OwnerID string
	// Status filters by job status. Empty means all statuses.
	Status Status
}

// StatusUpdate describes a status transition to apply to a job.
// The store stamps StartedAt/CompletedAt from the target status; callers
// never set timestamps directly.
type StatusUpdate struct {
	// Status is the target lifecycle state.
	Status Status
	// ErrorMessage is stored only when Status is StatusFailed.
	ErrorMessage string
	// Result is stored only when Status is StatusCompleted.
	Result json.RawMessage
}

// Store defines the persistence contract for jobs.
//
// Terminal protection: UpdateStatus and UpdateProgress return
// seeker.ErrJobTerminal without modifying the record when the job is
// already in a terminal state. Callers treat that as a logged no-op;
// this is what keeps the lifecycle monotonic under racing writers.
type Store interface {
	// CreateJob persists a new job in pending state.
	CreateJob(ctx context.Context, j *Job) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// UpdateStatus applies a lifecycle transition and returns the updated
	// job. Returns seeker.ErrJobTerminal if the job is already terminal
	// and seeker.ErrInvalidStatus if the transition is not legal.
	UpdateStatus(ctx context.Context, jobID id.JobID, upd StatusUpdate) (*Job, error)

	// UpdateProgress records progress and phase for a running job and
	// returns the updated job. Progress is clamped non-decreasing.
	// Returns seeker.ErrJobTerminal if the job is already terminal.
	UpdateProgress(ctx context.Context, jobID id.JobID, progress int, phase string) (*Job, error)

	// ListActive returns an owner's non-terminal jobs, most recent first.
	ListActive(ctx context.Context, ownerID string) ([]*Job, error)

	// ListJobs returns an owner's jobs, most recent first.
	ListJobs(ctx context.Context, ownerID string, opts ListOpts) ([]*Job, error)

	// CountJobs returns the number of jobs matching the given options.
	CountJobs(ctx context.Context, opts CountOpts) (int64, error)

	// DeleteJob removes a job by ID. Retention policies use this; the
	// orchestration core never does.
	DeleteJob(ctx context.Context, jobID id.JobID) error
}
