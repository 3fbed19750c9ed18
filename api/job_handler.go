package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/seeker"
	"github.com/xraph/seeker/engine"
	"github.com/xraph/seeker/id"
	"github.com/xraph/seeker/job"
	"github.com/xraph/seeker/scope"
)

func (a *API) createJob(ctx forge.Context, req *CreateJobRequest) (*CreateJobResponse, error) {
	typ, err := job.ParseType(req.Type)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid job type: %v", err))
	}

	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = scope.CaptureOwner(ctx.Context())
	}

	j, err := a.eng.Submit(ctx.Context(), engine.SubmitRequest{
		Type:    typ,
		Query:   req.Query,
		Params:  req.Params,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, mapSubmitError(ctx, err)
	}

	resp := &CreateJobResponse{
		JobID:  j.ID.String(),
		Status: string(j.Status),
	}
	return resp, ctx.JSON(http.StatusAccepted, resp)
}

func (a *API) getJob(ctx forge.Context, _ *GetJobRequest) (*job.Job, error) {
	jobID, err := id.ParseJobID(ctx.Param("jobId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid job ID: %v", err))
	}

	j, err := a.eng.Job(ctx.Context(), jobID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	return j, ctx.JSON(http.StatusOK, j)
}

func (a *API) listJobs(ctx forge.Context, req *ListJobsRequest) ([]*job.Job, error) {
	jobs, err := a.eng.Jobs(ctx.Context(), req.OwnerID, job.ListOpts{
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	return jobs, ctx.JSON(http.StatusOK, jobs)
}

func (a *API) listActiveJobs(ctx forge.Context, req *ListActiveJobsRequest) ([]*job.Job, error) {
	jobs, err := a.eng.ActiveJobs(ctx.Context(), req.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}

	return jobs, ctx.JSON(http.StatusOK, jobs)
}

func (a *API) cancelJob(ctx forge.Context, _ *CancelJobRequest) (*CancelJobResponse, error) {
	jobID, err := id.ParseJobID(ctx.Param("jobId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid job ID: %v", err))
	}

	j, err := a.eng.Job(ctx.Context(), jobID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if j.Status.Terminal() {
		return nil, ctx.Status(http.StatusConflict).JSON(ErrorResponse{
			Error: fmt.Sprintf("job already %s", j.Status),
		})
	}

	cancelled, err := a.eng.Cancel(ctx.Context(), jobID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	// Snapshot the post-cancel status. A pending job settles as
	// cancelled immediately; a running job stays running until its
	// handler observes the cancellation.
	if j, err = a.eng.Job(ctx.Context(), jobID); err != nil {
		return nil, mapStoreError(err)
	}

	resp := &CancelJobResponse{
		Cancelled: cancelled,
		Status:    string(j.Status),
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

// mapSubmitError converts submission failures to forge HTTP errors.
func mapSubmitError(ctx forge.Context, err error) error {
	switch {
	case errors.Is(err, seeker.ErrEmptyQuery), errors.Is(err, seeker.ErrUnknownJobType):
		return forge.BadRequest(err.Error())
	case errors.Is(err, seeker.ErrAdmissionDenied):
		return ctx.Status(http.StatusTooManyRequests).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, seeker.ErrNotRunning):
		return ctx.Status(http.StatusServiceUnavailable).JSON(ErrorResponse{Error: err.Error()})
	default:
		return err
	}
}

// mapStoreError converts seeker sentinel errors to forge HTTP errors.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, seeker.ErrJobNotFound) {
		return forge.NotFound(err.Error())
	}
	return err
}
