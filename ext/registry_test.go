package ext_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/seeker/ext"
	"github.com/xraph/seeker/job"
)

// ──────────────────────────────────────────────────
// Test extensions
// ──────────────────────────────────────────────────

// allHooksExt implements every lifecycle hook for testing.
type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnJobCreated(_ context.Context, _ *job.Job) error {
	e.calls = append(e.calls, "OnJobCreated")
	return nil
}

func (e *allHooksExt) OnJobStarted(_ context.Context, _ *job.Job) error {
	e.calls = append(e.calls, "OnJobStarted")
	return nil
}

func (e *allHooksExt) OnJobProgress(_ context.Context, _ *job.Job, _ int, _ string) error {
	e.calls = append(e.calls, "OnJobProgress")
	return nil
}

func (e *allHooksExt) OnJobPartialResult(_ context.Context, _ *job.Job, _ json.RawMessage) error {
	e.calls = append(e.calls, "OnJobPartialResult")
	return nil
}

func (e *allHooksExt) OnJobCompleted(_ context.Context, _ *job.Job, _ time.Duration) error {
	e.calls = append(e.calls, "OnJobCompleted")
	return nil
}

func (e *allHooksExt) OnJobFailed(_ context.Context, _ *job.Job, _ error) error {
	e.calls = append(e.calls, "OnJobFailed")
	return nil
}

func (e *allHooksExt) OnJobCancelled(_ context.Context, _ *job.Job) error {
	e.calls = append(e.calls, "OnJobCancelled")
	return nil
}

func (e *allHooksExt) OnShutdown(_ context.Context) error {
	e.calls = append(e.calls, "OnShutdown")
	return nil
}

// createOnlyExt only implements the creation hook.
type createOnlyExt struct {
	calls []string
}

func (e *createOnlyExt) Name() string { return "create-only" }

func (e *createOnlyExt) OnJobCreated(_ context.Context, _ *job.Job) error {
	e.calls = append(e.calls, "OnJobCreated")
	return nil
}

// failingExt returns errors from hooks.
type failingExt struct{}

func (e *failingExt) Name() string { return "failing" }

func (e *failingExt) OnJobCreated(_ context.Context, _ *job.Job) error {
	return errors.New("boom")
}

func (e *failingExt) OnShutdown(_ context.Context) error {
	return errors.New("shutdown boom")
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestRegistry_RegisterDiscoversInterfaces(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	if got := len(r.Extensions()); got != 1 {
		t.Fatalf("expected 1 extension, got %d", got)
	}
	if got := r.Extensions()[0].Name(); got != "all-hooks" {
		t.Fatalf("expected name 'all-hooks', got %q", got)
	}
}

func TestRegistry_EmitFiresOnlyImplementors(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	co := &createOnlyExt{}
	r.Register(all)
	r.Register(co)

	ctx := context.Background()
	j := &job.Job{Query: "test query"}

	// Both implement OnJobCreated → both called.
	r.EmitJobCreated(ctx, j)
	if len(all.calls) != 1 || all.calls[0] != "OnJobCreated" {
		t.Fatalf("all: expected [OnJobCreated], got %v", all.calls)
	}
	if len(co.calls) != 1 || co.calls[0] != "OnJobCreated" {
		t.Fatalf("co: expected [OnJobCreated], got %v", co.calls)
	}

	// Only all implements OnJobStarted → co not called.
	r.EmitJobStarted(ctx, j)
	if len(all.calls) != 2 || all.calls[1] != "OnJobStarted" {
		t.Fatalf("all: expected OnJobStarted as 2nd, got %v", all.calls)
	}
	if len(co.calls) != 1 {
		t.Fatalf("co: should still have 1 call, got %v", co.calls)
	}
}

func TestRegistry_AllJobHooksFire(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	ctx := context.Background()
	j := &job.Job{Query: "test query"}

	r.EmitJobCreated(ctx, j)
	r.EmitJobStarted(ctx, j)
	r.EmitJobProgress(ctx, j, 50, "searching")
	r.EmitJobPartialResult(ctx, j, json.RawMessage(`{"chunk":1}`))
	r.EmitJobCompleted(ctx, j, time.Second)
	r.EmitJobFailed(ctx, j, errors.New("fail"))
	r.EmitJobCancelled(ctx, j)
	r.EmitShutdown(ctx)

	expected := []string{
		"OnJobCreated", "OnJobStarted", "OnJobProgress", "OnJobPartialResult",
		"OnJobCompleted", "OnJobFailed", "OnJobCancelled", "OnShutdown",
	}
	if len(all.calls) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(all.calls), all.calls)
	}
	for i, want := range expected {
		if all.calls[i] != want {
			t.Errorf("call[%d] = %q, want %q", i, all.calls[i], want)
		}
	}
}

func TestRegistry_HookErrorsDoNotBlock(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	co := &createOnlyExt{}
	r.Register(&failingExt{})
	r.Register(co)

	ctx := context.Background()
	j := &job.Job{Query: "test query"}

	// The failing extension must not prevent later extensions from running.
	r.EmitJobCreated(ctx, j)
	if len(co.calls) != 1 {
		t.Fatalf("expected create-only to be called despite earlier error, got %v", co.calls)
	}

	r.EmitShutdown(ctx)
}
