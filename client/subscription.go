package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xraph/seeker/stream"
)

// Stream subscribes to a job's live event stream and returns a channel
// of events. The channel is closed when the job reaches a terminal
// status, the server ends the stream, or ctx is cancelled. Events the
// receiver is too slow to take are dropped.
func (c *Client) Stream(ctx context.Context, jobID string) (<-chan *stream.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs/"+jobID+"/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("seeker/client: build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("seeker/client: open stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close() //nolint:errcheck
		return nil, c.statusError(resp)
	}

	ch := make(chan *stream.Event, 64)
	go c.readEvents(resp, ch)
	return ch, nil
}

// readEvents parses the SSE wire format: "event:" and "data:" lines
// followed by a blank line per event.
func (c *Client) readEvents(resp *http.Response, ch chan<- *stream.Event) {
	defer resp.Body.Close() //nolint:errcheck
	defer close(ch)

	var data string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "":
			if data == "" {
				continue
			}
			var evt stream.Event
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				c.logger.Warn("seeker/client: invalid stream event",
					slog.String("error", err.Error()),
				)
				data = ""
				continue
			}
			data = ""
			select {
			case ch <- &evt:
			default:
				// Drop if the receiver is slow.
			}
			if evt.Type.Terminal() {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		c.logger.Warn("seeker/client: stream read error",
			slog.String("error", err.Error()),
		)
	}
}
