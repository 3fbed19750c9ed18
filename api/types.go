package api

import "encoding/json"

// CreateJobRequest is the body of POST /v1/jobs.
type CreateJobRequest struct {
	Type    string          `json:"type"`
	Query   string          `json:"query"`
	Params  json.RawMessage `json:"params,omitempty"`
	OwnerID string          `json:"owner_id,omitempty"`
}

// CreateJobResponse acknowledges an accepted job submission.
type CreateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ListJobsRequest carries query parameters for GET /v1/jobs.
type ListJobsRequest struct {
	OwnerID string `query:"owner_id"`
	Limit   int    `query:"limit"`
	Offset  int    `query:"offset"`
}

// ListActiveJobsRequest carries query parameters for GET /v1/jobs/active.
type ListActiveJobsRequest struct {
	OwnerID string `query:"owner_id"`
}

// GetJobRequest is the (empty) request for GET /v1/jobs/:jobId.
type GetJobRequest struct{}

// CancelJobRequest is the (empty) request for POST /v1/jobs/:jobId/cancel.
type CancelJobRequest struct{}

// CancelJobResponse reports whether this call won the cancellation and
// the job's status after the request was registered.
type CancelJobResponse struct {
	Cancelled bool   `json:"cancelled"`
	Status    string `json:"status"`
}

// ErrorResponse is the body of non-2xx responses written directly by
// handlers (conflict, rate limit).
type ErrorResponse struct {
	Error string `json:"error"`
}

// defaultLimit clamps a client-supplied page size to a sane range.
func defaultLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > 200:
		return 200
	default:
		return limit
	}
}
