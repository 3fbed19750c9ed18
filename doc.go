// Package seeker provides an orchestrator for long-running search and
// analysis jobs with live event streaming. It registers user-triggered
// operations (web search, deep research, fact verification, report
// generation), runs each as an independent asynchronous task, drives the
// job through an explicit lifecycle, and multicasts progress and result
// events to any number of streaming subscribers.
//
// Seeker is designed as a library, not a service. Import it, configure a
// store, register operation handlers as ordinary Go functions, and mount
// the HTTP surface from the api package.
//
// # Quick Start
//
//	o, err := seeker.New(
//	    seeker.WithStore(memory.New()),
//	    seeker.WithHeartbeatInterval(15*time.Second),
//	)
//
// # Architecture
//
// The job store owns job records; the worker executor owns each job's
// mutable state while it runs; the stream hub fans lifecycle events out
// to per-job multicast channels. Cancellation is cooperative: a cancel
// request cancels the job's context and the executor applies the
// terminal state at its next checkpoint.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package seeker
