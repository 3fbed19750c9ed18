package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/xraph/seeker/job"
)

// SubmitJobRequest describes a job submission.
type SubmitJobRequest struct {
	Type    string          `json:"type"`
	Query   string          `json:"query"`
	Params  json.RawMessage `json:"params,omitempty"`
	OwnerID string          `json:"owner_id,omitempty"`
}

// SubmitJobResult acknowledges an accepted submission.
type SubmitJobResult struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// SubmitJob submits a job to the remote seeker server.
func (c *Client) SubmitJob(ctx context.Context, req SubmitJobRequest) (*SubmitJobResult, error) {
	var result SubmitJobResult
	if err := c.do(ctx, http.MethodPost, "/v1/jobs", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJob retrieves a job by ID.
func (c *Client) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	var j job.Job
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+jobID, nil, nil, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// ListJobs returns an owner's jobs, most recent first.
func (c *Client) ListJobs(ctx context.Context, ownerID string, limit, offset int) ([]*job.Job, error) {
	q := url.Values{}
	if ownerID != "" {
		q.Set("owner_id", ownerID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var jobs []*job.Job
	if err := c.do(ctx, http.MethodGet, "/v1/jobs", q, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListActiveJobs returns an owner's non-terminal jobs, most recent first.
func (c *Client) ListActiveJobs(ctx context.Context, ownerID string) ([]*job.Job, error) {
	q := url.Values{}
	if ownerID != "" {
		q.Set("owner_id", ownerID)
	}

	var jobs []*job.Job
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/active", q, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// CancelJobResult reports the cancellation outcome and the job's status
// after the request was registered.
type CancelJobResult struct {
	Cancelled bool   `json:"cancelled"`
	Status    string `json:"status"`
}

// CancelJob requests cancellation of a job. The result reports whether
// this call won the cancellation; a terminal job yields
// seeker.ErrJobTerminal.
func (c *Client) CancelJob(ctx context.Context, jobID string) (*CancelJobResult, error) {
	var result CancelJobResult
	if err := c.do(ctx, http.MethodPost, "/v1/jobs/"+jobID+"/cancel", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
