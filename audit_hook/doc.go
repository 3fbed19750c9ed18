// Package audithook is a Seeker extension that bridges job lifecycle
// events to an immutable audit trail backend.
//
// Every job lifecycle hook emits a structured audit event through the
// [Recorder] interface. The extension assigns appropriate severity
// levels (info for normal operations, warning for cancellations,
// critical for terminal failures) and rich metadata (job type, owner,
// query, elapsed time, errors).
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionJobFailed,
//	        audithook.ActionJobCancelled,
//	    ),
//	)
package audithook
