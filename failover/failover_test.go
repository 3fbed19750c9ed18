package failover_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/xraph/seeker/backoff"
	"github.com/xraph/seeker/failover"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// staticProvider emits the given items then closes.
func staticProvider(name string, items ...failover.Item) failover.Attempt {
	return failover.Attempt{
		Name: name,
		Open: func(_ context.Context) (<-chan failover.Item, error) {
			ch := make(chan failover.Item, len(items))
			for _, it := range items {
				it.Provider = name
				ch <- it
			}
			close(ch)
			return ch, nil
		},
	}
}

// openFailProvider fails at open time.
func openFailProvider(name string) failover.Attempt {
	return failover.Attempt{
		Name: name,
		Open: func(_ context.Context) (<-chan failover.Item, error) {
			return nil, errors.New(name + " unavailable")
		},
	}
}

// emptyProvider opens fine but closes without items.
func emptyProvider(name string) failover.Attempt {
	return staticProvider(name)
}

// stallProvider opens but never delivers until its context ends.
func stallProvider(name string) failover.Attempt {
	return failover.Attempt{
		Name: name,
		Open: func(ctx context.Context) (<-chan failover.Item, error) {
			ch := make(chan failover.Item)
			go func() {
				<-ctx.Done()
				close(ch)
			}()
			return ch, nil
		},
	}
}

func collect(t *testing.T, ch <-chan failover.Item) []failover.Item {
	t.Helper()
	var out []failover.Item
	timeout := time.After(2 * time.Second)
	for {
		select {
		case item, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, item)
		case <-timeout:
			t.Fatal("timed out draining stream")
		}
	}
}

func TestSequencer_FirstProviderWins(t *testing.T) {
	t.Parallel()

	seq := failover.New(testLogger(), []failover.Attempt{
		staticProvider("primary",
			failover.Item{Data: json.RawMessage(`{"n":1}`)},
			failover.Item{Data: json.RawMessage(`{"n":2}`)},
		),
		staticProvider("fallback", failover.Item{Data: json.RawMessage(`{"n":99}`)}),
	})

	items := collect(t, seq.Stream(context.Background()))
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	for _, it := range items {
		if it.Provider != "primary" {
			t.Errorf("Provider = %q, want %q", it.Provider, "primary")
		}
	}
}

func TestSequencer_FallsThroughToFirstUsable(t *testing.T) {
	t.Parallel()

	seq := failover.New(testLogger(), []failover.Attempt{
		openFailProvider("broken"),
		emptyProvider("empty"),
		staticProvider("working", failover.Item{Data: json.RawMessage(`{"ok":true}`)}),
	})

	items := collect(t, seq.Stream(context.Background()))
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Provider != "working" {
		t.Errorf("Provider = %q, want %q", items[0].Provider, "working")
	}
}

func TestSequencer_FirstItemErrorTriggersFailover(t *testing.T) {
	t.Parallel()

	seq := failover.New(testLogger(), []failover.Attempt{
		staticProvider("flaky", failover.Item{Err: errors.New("upstream 500")}),
		staticProvider("stable", failover.Item{Data: json.RawMessage(`{"ok":true}`)}),
	})

	items := collect(t, seq.Stream(context.Background()))
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Provider != "stable" {
		t.Errorf("Provider = %q, want %q", items[0].Provider, "stable")
	}
}

func TestSequencer_MidStreamErrorIsForwarded(t *testing.T) {
	t.Parallel()

	streamErr := errors.New("connection reset")
	seq := failover.New(testLogger(), []failover.Attempt{
		staticProvider("primary",
			failover.Item{Data: json.RawMessage(`{"n":1}`)},
			failover.Item{Err: streamErr},
		),
		staticProvider("fallback", failover.Item{Data: json.RawMessage(`{"n":99}`)}),
	})

	items := collect(t, seq.Stream(context.Background()))
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	// The winner's mid-stream error is delivered as-is, no failover.
	if !errors.Is(items[1].Err, streamErr) {
		t.Errorf("items[1].Err = %v, want %v", items[1].Err, streamErr)
	}
	if items[1].Provider != "primary" {
		t.Errorf("Provider = %q, want %q", items[1].Provider, "primary")
	}
}

func TestSequencer_ExhaustionYieldsSyntheticItem(t *testing.T) {
	t.Parallel()

	seq := failover.New(testLogger(), []failover.Attempt{
		openFailProvider("a"),
		emptyProvider("b"),
	})

	items := collect(t, seq.Stream(context.Background()))
	if len(items) != 1 {
		t.Fatalf("expected 1 synthetic item, got %d", len(items))
	}
	if items[0].Provider != failover.SyntheticProvider {
		t.Errorf("Provider = %q, want %q", items[0].Provider, failover.SyntheticProvider)
	}
	if items[0].Err != nil {
		t.Errorf("synthetic item must not carry an error, got %v", items[0].Err)
	}

	var payload map[string]string
	if err := json.Unmarshal(items[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal synthetic payload: %v", err)
	}
	if payload["message"] != failover.NoProviderMessage {
		t.Errorf("message = %q, want %q", payload["message"], failover.NoProviderMessage)
	}
}

func TestSequencer_NoProvidersYieldsSyntheticItem(t *testing.T) {
	t.Parallel()

	seq := failover.New(testLogger(), nil)
	items := collect(t, seq.Stream(context.Background()))
	if len(items) != 1 || items[0].Provider != failover.SyntheticProvider {
		t.Fatalf("expected synthetic item, got %+v", items)
	}
}

func TestSequencer_AttemptTimeoutSkipsStalledProvider(t *testing.T) {
	t.Parallel()

	seq := failover.New(testLogger(), []failover.Attempt{
		stallProvider("stalled"),
		staticProvider("quick", failover.Item{Data: json.RawMessage(`{"ok":true}`)}),
	}, failover.WithAttemptTimeout(50*time.Millisecond))

	items := collect(t, seq.Stream(context.Background()))
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Provider != "quick" {
		t.Errorf("Provider = %q, want %q", items[0].Provider, "quick")
	}
}

func TestSequencer_ContextCancelStopsSequence(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seq := failover.New(testLogger(), []failover.Attempt{
		staticProvider("primary", failover.Item{Data: json.RawMessage(`{"n":1}`)}),
	})

	items := collect(t, seq.Stream(ctx))
	if len(items) != 0 {
		t.Fatalf("expected no items on cancelled context, got %d", len(items))
	}
}

func TestSequencer_RetryDelayBetweenAttempts(t *testing.T) {
	t.Parallel()

	seq := failover.New(testLogger(), []failover.Attempt{
		openFailProvider("a"),
		staticProvider("b", failover.Item{Data: json.RawMessage(`{"ok":true}`)}),
	}, failover.WithRetryDelay(backoff.NewConstant(30*time.Millisecond)))

	start := time.Now()
	items := collect(t, seq.Stream(context.Background()))
	elapsed := time.Since(start)

	if len(items) != 1 || items[0].Provider != "b" {
		t.Fatalf("expected item from b, got %+v", items)
	}
	if elapsed < 30*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 30ms backoff delay", elapsed)
	}
}
