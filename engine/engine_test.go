package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/seeker"
	"github.com/xraph/seeker/engine"
	"github.com/xraph/seeker/failover"
	"github.com/xraph/seeker/id"
	"github.com/xraph/seeker/job"
	"github.com/xraph/seeker/store/memory"
	"github.com/xraph/seeker/stream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fixture builds a started engine backed by the in-memory store.
func fixture(t *testing.T, opts ...seeker.Option) *engine.Engine {
	t.Helper()

	base := []seeker.Option{
		seeker.WithLogger(testLogger()),
		seeker.WithStore(memory.New()),
		seeker.WithHeartbeatInterval(0),
	}
	o, err := seeker.New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	eng, err := engine.Build(o,
		engine.WithPrometheusRegisterer(prometheus.NewRegistry()),
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.Stop(ctx); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})

	return eng
}

func recvEvent(t *testing.T, sub *stream.Subscriber) *stream.Event {
	t.Helper()
	select {
	case evt, ok := <-sub.C():
		if !ok {
			t.Fatal("subscriber channel closed unexpectedly")
		}
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func recvClosed(t *testing.T, sub *stream.Subscriber) {
	t.Helper()
	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("expected closed channel, got event")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func waitStatus(t *testing.T, eng *engine.Engine, jobID id.JobID, want job.Status) *job.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		j, err := eng.Job(context.Background(), jobID)
		if err != nil {
			t.Fatalf("Job: %v", err)
		}
		if j.Status == want {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job never reached status %q", want)
	return nil
}

func TestBuildRequiresStore(t *testing.T) {
	t.Parallel()

	o, err := seeker.New(seeker.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := engine.Build(o); !errors.Is(err, seeker.ErrNoStore) {
		t.Fatalf("Build error = %v, want ErrNoStore", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	t.Parallel()

	eng := fixture(t)
	ctx := context.Background()

	_, err := eng.Submit(ctx, engine.SubmitRequest{Type: job.TypeWebSearch, Query: "  "})
	if !errors.Is(err, seeker.ErrEmptyQuery) {
		t.Fatalf("empty query error = %v, want ErrEmptyQuery", err)
	}

	_, err = eng.Submit(ctx, engine.SubmitRequest{Type: job.TypeWebSearch, Query: "anything"})
	if !errors.Is(err, seeker.ErrUnknownJobType) {
		t.Fatalf("unregistered type error = %v, want ErrUnknownJobType", err)
	}
}

func TestSubmitRunsToCompletion(t *testing.T) {
	t.Parallel()

	eng := fixture(t)
	ctx := context.Background()

	eng.RegisterHandler(job.TypeWebSearch, func(_ context.Context, _ *job.Job, report job.Reporter) (json.RawMessage, error) {
		report.Progress(50, "searching")
		report.Partial(json.RawMessage(`{"hit":1}`))
		return json.RawMessage(`{"hits":3}`), nil
	})

	j, err := eng.Submit(ctx, engine.SubmitRequest{
		Type:    job.TypeWebSearch,
		Query:   "golang channels",
		OwnerID: "owner-1",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if j.Status != job.StatusPending {
		t.Fatalf("submitted status = %q, want pending", j.Status)
	}

	final := waitStatus(t, eng, j.ID, job.StatusCompleted)
	if string(final.Result) != `{"hits":3}` {
		t.Fatalf("result = %s", final.Result)
	}
	if final.Progress != 100 {
		t.Fatalf("progress = %d, want 100", final.Progress)
	}
}

func TestSubmitFailureRecorded(t *testing.T) {
	t.Parallel()

	eng := fixture(t)
	ctx := context.Background()

	eng.RegisterHandler(job.TypeFactCheck, func(_ context.Context, _ *job.Job, _ job.Reporter) (json.RawMessage, error) {
		return nil, errors.New("provider exploded")
	})

	j, err := eng.Submit(ctx, engine.SubmitRequest{Type: job.TypeFactCheck, Query: "is water wet"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitStatus(t, eng, j.ID, job.StatusFailed)
	if final.ErrorMessage == "" {
		t.Fatal("expected error message on failed job")
	}
}

func TestTypedDefinition(t *testing.T) {
	t.Parallel()

	eng := fixture(t)
	ctx := context.Background()

	type reportParams struct {
		Depth int `json:"depth"`
	}
	engine.Register(eng, &job.Definition[reportParams]{
		Type: job.TypeReport,
		Handler: func(_ context.Context, _ string, p reportParams, _ job.Reporter) (json.RawMessage, error) {
			if p.Depth != 3 {
				return nil, errors.New("params not decoded")
			}
			return json.RawMessage(`"ok"`), nil
		},
	})

	j, err := eng.Submit(ctx, engine.SubmitRequest{
		Type:   job.TypeReport,
		Query:  "quarterly report",
		Params: []byte(`{"depth":3}`),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitStatus(t, eng, j.ID, job.StatusCompleted)
}

func TestSubscribeReceivesLifecycle(t *testing.T) {
	t.Parallel()

	eng := fixture(t)
	ctx := context.Background()

	release := make(chan struct{})
	eng.RegisterHandler(job.TypeDeepResearch, func(_ context.Context, _ *job.Job, report job.Reporter) (json.RawMessage, error) {
		<-release
		report.Progress(80, "synthesizing")
		return json.RawMessage(`{"done":true}`), nil
	})

	j, err := eng.Submit(ctx, engine.SubmitRequest{Type: job.TypeDeepResearch, Query: "deep dive"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	sub, err := eng.Subscribe(ctx, j.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	close(release)

	var types []stream.EventType
	for {
		evt := recvEvent(t, sub)
		types = append(types, evt.Type)
		if evt.Type.Terminal() {
			break
		}
	}
	recvClosed(t, sub)

	last := types[len(types)-1]
	if last != stream.EventCompleted {
		t.Fatalf("terminal event = %q, want completed", last)
	}
	// started may land before our subscription; progress must not.
	found := false
	for _, et := range types {
		if et == stream.EventProgress {
			found = true
		}
	}
	if !found {
		t.Fatalf("no progress event in %v", types)
	}
}

func TestSubscribeTerminalReplays(t *testing.T) {
	t.Parallel()

	eng := fixture(t)
	ctx := context.Background()

	eng.RegisterHandler(job.TypeWebSearch, func(_ context.Context, _ *job.Job, _ job.Reporter) (json.RawMessage, error) {
		return json.RawMessage(`{"hits":0}`), nil
	})

	j, err := eng.Submit(ctx, engine.SubmitRequest{Type: job.TypeWebSearch, Query: "stale"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitStatus(t, eng, j.ID, job.StatusCompleted)

	sub, err := eng.Subscribe(ctx, j.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	evt := recvEvent(t, sub)
	if evt.Type != stream.EventCompleted {
		t.Fatalf("replay event = %q, want completed", evt.Type)
	}
	recvClosed(t, sub)
}

func TestSubscribeUnknownJob(t *testing.T) {
	t.Parallel()

	eng := fixture(t)
	if _, err := eng.Subscribe(context.Background(), id.NewJobID()); !errors.Is(err, seeker.ErrJobNotFound) {
		t.Fatalf("Subscribe error = %v, want ErrJobNotFound", err)
	}
}

func TestCancelRunningJob(t *testing.T) {
	t.Parallel()

	eng := fixture(t)
	ctx := context.Background()

	started := make(chan struct{})
	eng.RegisterHandler(job.TypeUnified, func(hctx context.Context, _ *job.Job, _ job.Reporter) (json.RawMessage, error) {
		close(started)
		<-hctx.Done()
		return nil, hctx.Err()
	})

	j, err := eng.Submit(ctx, engine.SubmitRequest{Type: job.TypeUnified, Query: "long haul"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never started")
	}

	ok, err := eng.Cancel(ctx, j.ID)
	if err != nil || !ok {
		t.Fatalf("Cancel = (%v, %v), want (true, nil)", ok, err)
	}
	waitStatus(t, eng, j.ID, job.StatusCancelled)

	ok, err = eng.Cancel(ctx, j.ID)
	if err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
	if ok {
		t.Fatal("second Cancel returned true, want false")
	}
}

func TestAdmissionLimit(t *testing.T) {
	t.Parallel()

	eng := fixture(t, seeker.WithMaxActive(1))
	ctx := context.Background()

	block := make(chan struct{})
	eng.RegisterHandler(job.TypeWebSearch, func(_ context.Context, _ *job.Job, _ job.Reporter) (json.RawMessage, error) {
		<-block
		return json.RawMessage(`{}`), nil
	})
	defer close(block)

	if _, err := eng.Submit(ctx, engine.SubmitRequest{Type: job.TypeWebSearch, Query: "first", OwnerID: "o1"}); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	_, err := eng.Submit(ctx, engine.SubmitRequest{Type: job.TypeWebSearch, Query: "second", OwnerID: "o1"})
	if !errors.Is(err, seeker.ErrAdmissionDenied) {
		t.Fatalf("second Submit error = %v, want ErrAdmissionDenied", err)
	}
}

func TestListOperations(t *testing.T) {
	t.Parallel()

	eng := fixture(t)
	ctx := context.Background()

	block := make(chan struct{})
	eng.RegisterHandler(job.TypeWebSearch, func(_ context.Context, _ *job.Job, _ job.Reporter) (json.RawMessage, error) {
		<-block
		return json.RawMessage(`{}`), nil
	})
	defer close(block)

	for range 3 {
		if _, err := eng.Submit(ctx, engine.SubmitRequest{Type: job.TypeWebSearch, Query: "q", OwnerID: "lister"}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	active, err := eng.ActiveJobs(ctx, "lister")
	if err != nil {
		t.Fatalf("ActiveJobs: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("active = %d, want 3", len(active))
	}

	listed, err := eng.Jobs(ctx, "lister", job.ListOpts{Limit: 2})
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed = %d, want 2", len(listed))
	}
}

func TestFailoverHelper(t *testing.T) {
	t.Parallel()

	eng := fixture(t)

	seq := eng.Failover(failover.Attempt{
		Name: "primary",
		Open: func(_ context.Context) (<-chan failover.Item, error) {
			ch := make(chan failover.Item, 1)
			ch <- failover.Item{Provider: "primary", Data: json.RawMessage(`{"a":1}`)}
			close(ch)
			return ch, nil
		},
	})

	var items []failover.Item
	for it := range seq.Stream(context.Background()) {
		items = append(items, it)
	}
	if len(items) != 1 || items[0].Provider != "primary" {
		t.Fatalf("unexpected items %+v", items)
	}
}
