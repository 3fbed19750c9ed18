package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/xraph/seeker/id"
	"github.com/xraph/seeker/job"
	"github.com/xraph/seeker/middleware"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestChain_ExecutionOrder(t *testing.T) {
	var order []string

	mw1 := func(ctx context.Context, _ *job.Job, next middleware.Handler) error {
		order = append(order, "mw1-before")
		err := next(ctx)
		order = append(order, "mw1-after")
		return err
	}

	mw2 := func(ctx context.Context, _ *job.Job, next middleware.Handler) error {
		order = append(order, "mw2-before")
		err := next(ctx)
		order = append(order, "mw2-after")
		return err
	}

	chain := middleware.Chain(mw1, mw2)
	j := &job.Job{ID: id.NewJobID(), Type: job.TypeWebSearch}
	handler := func(_ context.Context) error {
		order = append(order, "handler")
		return nil
	}

	err := chain(context.Background(), j, handler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(order), order)
	}
	for i, want := range expected {
		if order[i] != want {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want)
		}
	}
}

func TestChain_Empty(t *testing.T) {
	chain := middleware.Chain()
	called := false
	handler := func(_ context.Context) error {
		called = true
		return nil
	}

	j := &job.Job{ID: id.NewJobID()}
	if err := chain(context.Background(), j, handler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler not called through empty chain")
	}
}

func TestChain_ErrorPropagates(t *testing.T) {
	sentinel := errors.New("handler failed")

	chain := middleware.Chain(
		func(ctx context.Context, _ *job.Job, next middleware.Handler) error {
			return next(ctx)
		},
	)

	j := &job.Job{ID: id.NewJobID()}
	err := chain(context.Background(), j, func(_ context.Context) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}

func TestRecover_ConvertsPanicToError(t *testing.T) {
	mw := middleware.Recover(testLogger())

	j := &job.Job{ID: id.NewJobID(), Type: job.TypeDeepResearch}
	err := mw(context.Background(), j, func(_ context.Context) error {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
}

func TestRecover_PassesThroughSuccess(t *testing.T) {
	mw := middleware.Recover(testLogger())

	j := &job.Job{ID: id.NewJobID()}
	if err := mw(context.Background(), j, func(_ context.Context) error {
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTimeout_ExpiresContext(t *testing.T) {
	mw := middleware.Timeout(testLogger(), time.Minute)

	j := &job.Job{ID: id.NewJobID(), Timeout: 20 * time.Millisecond}
	err := mw(context.Background(), j, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestTimeout_UsesDefaultWhenJobHasNone(t *testing.T) {
	mw := middleware.Timeout(testLogger(), 20*time.Millisecond)

	j := &job.Job{ID: id.NewJobID()}
	err := mw(context.Background(), j, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestLogging_PassesThroughError(t *testing.T) {
	mw := middleware.Logging(testLogger())
	sentinel := errors.New("boom")

	j := &job.Job{ID: id.NewJobID(), Type: job.TypeFactCheck}
	err := mw(context.Background(), j, func(_ context.Context) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}

func TestTracing_PassThrough(t *testing.T) {
	mw := middleware.Tracing()

	j := &job.Job{ID: id.NewJobID(), Type: job.TypeWebSearch, OwnerID: "owner-1"}
	called := false
	if err := mw(context.Background(), j, func(_ context.Context) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler not called")
	}
}
