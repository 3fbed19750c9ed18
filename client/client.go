// Package client provides a Go client for a remote Seeker instance over
// its HTTP API, including live job event streams via Server-Sent Events.
//
// Usage:
//
//	c := client.New("https://api.example.com",
//	    client.WithToken("sk_..."),
//	)
//
//	// Submit a job.
//	res, err := c.SubmitJob(ctx, client.SubmitJobRequest{
//	    Type:  "web_search",
//	    Query: "golang sse",
//	})
//
//	// Watch its events.
//	events, err := c.Stream(ctx, res.JobID)
//	for evt := range events {
//	    fmt.Printf("%s: %d%%\n", evt.Type, evt.Progress)
//	}
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/xraph/seeker"
)

// Client talks to a remote Seeker server over HTTP.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   http.DefaultClient,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues a JSON request and decodes a 2xx response body into out.
// Non-2xx responses are mapped back to seeker sentinel errors where
// possible.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("seeker/client: marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("seeker/client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("seeker/client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("seeker/client: decode response: %w", err)
	}
	return nil
}

// statusError maps an error response to a sentinel or generic error.
func (c *Client) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck

	msg := strings.TrimSpace(string(raw))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			msg = body.Error
		} else if body.Message != "" {
			msg = body.Message
		}
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", seeker.ErrJobNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", seeker.ErrJobTerminal, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", seeker.ErrAdmissionDenied, msg)
	default:
		return fmt.Errorf("seeker/client: server returned %d: %s", resp.StatusCode, msg)
	}
}
