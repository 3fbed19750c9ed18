package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle
// hook and becomes the Action field of the audit event.
const (
	ActionJobCreated   = "job.created"
	ActionJobStarted   = "job.started"
	ActionJobCompleted = "job.completed"
	ActionJobFailed    = "job.failed"
	ActionJobCancelled = "job.cancelled"
)

// CategoryJob groups all job lifecycle actions.
const CategoryJob = "seeker.job"

// ResourceJob is the Resource field used in audit events.
const ResourceJob = "job"

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobCreated,
		ActionJobStarted,
		ActionJobCompleted,
		ActionJobFailed,
		ActionJobCancelled,
	}
}
