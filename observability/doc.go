// Package observability provides a Prometheus-based metrics extension
// for Seeker. The MetricsExtension implements lifecycle hooks to record
// system-wide counters for job creation, start, completion, failure, and
// cancellation events, plus a run-duration histogram and a gauge of jobs
// currently executing.
//
// For per-execution tracing, see middleware.Tracing().
package observability
