// Package job defines the job entity, status state machine, typed
// operation definitions, and store contract.
//
// # Job Entity
//
// A [Job] represents one user-triggered search/analysis operation. It
// embeds [seeker.Entity] for timestamps, carries the query and opaque
// params, and progresses through a state machine:
//
//	pending → running → completed
//	pending → running → failed
//	pending → running → cancelled
//	pending → cancelled
//
// Fields of note:
//   - Progress: 0–100, non-decreasing while running
//   - Phase: free-text label for the current pipeline stage
//   - ErrorMessage: set only on failed jobs
//   - Result: set only on completed jobs
//   - Timeout: operation deadline (zero = unlimited)
//
// # Defining an Operation
//
// Use [Definition] with a typed handler. Params are JSON-decoded before
// the handler runs; progress pushes go through the [Reporter]:
//
//	var WebSearch = job.NewDefinition(job.TypeWebSearch,
//	    func(ctx context.Context, query string, p SearchParams, report job.Reporter) (json.RawMessage, error) {
//	        report.Progress(10, "querying providers")
//	        return search.Run(ctx, query, p)
//	    })
//
// # Registry
//
// [Registry] maps job types to type-erased [HandlerFunc] values.
// Register definitions at startup via [RegisterDefinition]:
//
//	job.RegisterDefinition(registry, WebSearch)
//	job.RegisterDefinition(registry, FactCheck)
//
// The engine package provides higher-level engine.Register and
// engine.Submit wrappers.
package job
