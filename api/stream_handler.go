package api

import (
	"fmt"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/seeker/id"
	"github.com/xraph/seeker/stream"
)

// streamJob serves a job's live event stream over Server-Sent Events.
// Each event is sent under its type name (started, progress,
// result_partial, completed, failed, cancelled, heartbeat). For jobs
// already terminal the client receives one synthetic terminal event and
// the stream ends. A connection that outlives the configured stream
// deadline is force-terminated with a failed event.
func (a *API) streamJob(ctx forge.Context, sseStream forge.Stream) error {
	jobID, err := id.ParseJobID(ctx.Param("jobId"))
	if err != nil {
		return fmt.Errorf("api: invalid job ID: %w", err)
	}

	sub, err := a.eng.Subscribe(ctx.Context(), jobID)
	if err != nil {
		return mapStoreError(err)
	}
	defer a.eng.Unsubscribe(jobID, sub)

	var deadline <-chan time.Time
	if d := a.eng.Orchestrator().Config().StreamTimeout; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case evt, ok := <-sub.C():
			if !ok {
				return nil
			}
			if sendErr := sseStream.SendJSON(string(evt.Type), evt); sendErr != nil {
				return sendErr
			}
			if flushErr := sseStream.Flush(); flushErr != nil {
				return flushErr
			}
		case <-deadline:
			expired := &stream.Event{
				Type:      stream.EventFailed,
				JobID:     jobID.String(),
				Message:   "stream deadline exceeded",
				Timestamp: time.Now().UTC(),
			}
			if sendErr := sseStream.SendJSON(string(expired.Type), expired); sendErr != nil {
				return sendErr
			}
			return sseStream.Flush()
		case <-sseStream.Context().Done():
			return nil
		}
	}
}
