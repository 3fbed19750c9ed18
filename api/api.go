// Package api exposes the Seeker job orchestration surface over HTTP
// using Forge-style typed handlers, plus a Server-Sent Events stream
// endpoint for live job events.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/seeker/engine"
	"github.com/xraph/seeker/job"
)

// API wires all Forge-style HTTP handlers together for the seeker system.
type API struct {
	eng    *engine.Engine
	router forge.Router
}

// New creates an API from a seeker Engine.
func New(eng *engine.Engine, router forge.Router) *API {
	return &API{eng: eng, router: router}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	a.RegisterRoutes(a.router)
	return a.router.Handler()
}

// RegisterRoutes registers all seeker API routes into the given Forge
// router with full OpenAPI metadata.
func (a *API) RegisterRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("jobs"))

	_ = g.POST("/jobs", a.createJob,
		forge.WithSummary("Submit job"),
		forge.WithDescription("Accepts a new search/analysis job for asynchronous execution."),
		forge.WithOperationID("createJob"),
		forge.WithRequestSchema(CreateJobRequest{}),
		forge.WithResponseSchema(http.StatusAccepted, "Job accepted", CreateJobResponse{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/jobs", a.listJobs,
		forge.WithSummary("List jobs"),
		forge.WithDescription("Returns an owner's jobs, most recent first."),
		forge.WithOperationID("listJobs"),
		forge.WithRequestSchema(ListJobsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Job list", []*job.Job{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/jobs/active", a.listActiveJobs,
		forge.WithSummary("List active jobs"),
		forge.WithDescription("Returns an owner's non-terminal jobs, most recent first."),
		forge.WithOperationID("listActiveJobs"),
		forge.WithRequestSchema(ListActiveJobsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Active job list", []*job.Job{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/jobs/:jobId", a.getJob,
		forge.WithSummary("Get job"),
		forge.WithDescription("Returns details of a specific job."),
		forge.WithOperationID("getJob"),
		forge.WithResponseSchema(http.StatusOK, "Job details", &job.Job{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/jobs/:jobId/cancel", a.cancelJob,
		forge.WithSummary("Cancel job"),
		forge.WithDescription("Requests cancellation of a pending or running job."),
		forge.WithOperationID("cancelJob"),
		forge.WithResponseSchema(http.StatusOK, "Cancellation outcome", CancelJobResponse{}),
		forge.WithErrorResponses(),
	)

	_ = router.EventStream("/v1/jobs/:jobId/stream", a.streamJob)
}
