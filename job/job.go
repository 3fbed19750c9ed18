package job

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/seeker"
	"github.com/xraph/seeker/id"
)

// Type identifies the kind of search/analysis operation a job performs.
type Type string

const (
	// TypeUnified runs the combined search pipeline (search, crawl,
	// verify) in one operation.
	TypeUnified Type = "unified"
	// TypeWebSearch runs a plain web search.
	TypeWebSearch Type = "web_search"
	// TypeDeepResearch runs deep evidence gathering across sources.
	TypeDeepResearch Type = "deep_research"
	// TypeFactCheck runs claim verification against gathered evidence.
	TypeFactCheck Type = "fact_check"
	// TypeReport generates a report from prior results.
	TypeReport Type = "report"
)

// ParseType normalizes and validates a job type string.
// Input is case-insensitive so HTTP callers may send "UNIFIED".
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeUnified, TypeWebSearch, TypeDeepResearch, TypeFactCheck, TypeReport:
		return t, nil
	default:
		return "", fmt.Errorf("job: %w: %q", seeker.ErrUnknownJobType, s)
	}
}

// Status represents the lifecycle state of a job.
type Status string

const (
	// StatusPending means the job is registered but not yet dispatched.
	StatusPending Status = "pending"
	// StatusRunning means the job's operation is executing.
	StatusRunning Status = "running"
	// StatusCompleted means the operation finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the operation errored or timed out.
	StatusFailed Status = "failed"
	// StatusCancelled means the job was explicitly cancelled.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final. No transition out of a
// terminal status is permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// transitions is the explicit state machine. A job visits exactly one of:
//
//	pending → running → completed
//	pending → running → failed
//	pending → running → cancelled
//	pending → cancelled            (cancelled before dispatch)
var transitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusCancelled},
	StatusRunning: {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether moving from s to next is a legal
// state-machine step.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// Job represents one tracked, cancellable, asynchronous search/analysis
// operation. A job's mutable fields are owned exclusively by the one
// executor task driving it.
type Job struct {
	seeker.Entity

	ID           id.JobID        `json:"id"`
	Type         Type            `json:"type"`
	Query        string          `json:"query"`
	Params       json.RawMessage `json:"params,omitempty"`
	OwnerID      string          `json:"owner_id,omitempty"`
	Status       Status          `json:"status"`
	Progress     int             `json:"progress"`
	Phase        string          `json:"phase,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Timeout      time.Duration   `json:"timeout,omitempty"`
}
