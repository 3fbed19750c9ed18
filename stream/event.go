// Package stream provides per-job live event distribution for Seeker.
// It bridges the ext.Extension system to connected clients: each job gets
// its own multicast channel, and every lifecycle transition is fanned out
// to all subscribers of that job.
package stream

import (
	"encoding/json"
	"time"

	"github.com/xraph/seeker/job"
)

// EventType identifies the kind of job event.
type EventType string

const (
	EventStarted       EventType = "started"
	EventProgress      EventType = "progress"
	EventResultPartial EventType = "result_partial"
	EventCompleted     EventType = "completed"
	EventFailed        EventType = "failed"
	EventCancelled     EventType = "cancelled"
	EventHeartbeat     EventType = "heartbeat"
)

// Terminal reports whether this event type ends a job's stream.
func (t EventType) Terminal() bool {
	switch t {
	case EventCompleted, EventFailed, EventCancelled:
		return true
	}
	return false
}

// Event is the envelope sent to subscribers of a job's channel.
type Event struct {
	// Type identifies the lifecycle event.
	Type EventType `json:"type"`

	// JobID is the job this event belongs to.
	JobID string `json:"job_id"`

	// Status is the job status at the time of the event.
	Status job.Status `json:"status,omitempty"`

	// Progress is the completion percentage (0-100), for progress events.
	Progress int `json:"progress,omitempty"`

	// Phase is a human-readable description of the current stage.
	Phase string `json:"phase,omitempty"`

	// Message carries the error message on failed events.
	Message string `json:"message,omitempty"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts"`

	// Data is the event-specific payload: the full result for completed
	// events, an intermediate chunk for result_partial events.
	Data json.RawMessage `json:"data,omitempty"`
}

// TerminalEvent builds the closing event for a job that has already
// reached a terminal status. Used to replay the outcome to subscribers
// that attach after the channel is gone.
func TerminalEvent(j *job.Job) *Event {
	evt := &Event{
		JobID:     j.ID.String(),
		Status:    j.Status,
		Timestamp: time.Now().UTC(),
	}
	switch j.Status {
	case job.StatusCompleted:
		evt.Type = EventCompleted
		evt.Data = j.Result
	case job.StatusFailed:
		evt.Type = EventFailed
		evt.Message = j.ErrorMessage
	case job.StatusCancelled:
		evt.Type = EventCancelled
	}
	return evt
}
