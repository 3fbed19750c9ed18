package failover

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/xraph/seeker/backoff"
)

// DefaultAttemptTimeout bounds how long the sequencer waits for a
// provider's first item before moving to the next provider.
const DefaultAttemptTimeout = 30 * time.Second

// NoProviderMessage is the payload message of the synthetic item emitted
// when every provider has been tried and none produced a result.
const NoProviderMessage = "no provider available"

// SyntheticProvider is the provider name on the synthetic exhaustion item.
const SyntheticProvider = "none"

// Item is one result chunk from a provider stream.
type Item struct {
	// Provider names the provider that produced this item.
	Provider string `json:"provider"`

	// Data is the result payload.
	Data json.RawMessage `json:"data,omitempty"`

	// Err is set when the provider stream failed mid-flight. A non-nil
	// Err on the first item fails the attempt and triggers failover.
	Err error `json:"-"`
}

// Attempt is one provider in the failover order.
type Attempt struct {
	// Name identifies the provider.
	Name string

	// Open starts the provider's result stream. The returned channel
	// must be closed by the provider when it has no more items. Open
	// should respect ctx cancellation.
	Open func(ctx context.Context) (<-chan Item, error)
}

// Sequencer tries providers in order until one produces a result.
// The first provider to deliver a usable first item wins: its stream is
// piped through unchanged, including any later mid-stream errors. A
// provider that errors on open, errors on its first item, closes without
// items, or exceeds the attempt timeout is skipped. When every provider
// is exhausted the output carries a single synthetic item rather than an
// error, so callers always receive a result stream.
type Sequencer struct {
	attempts []Attempt
	logger   *slog.Logger

	attemptTimeout time.Duration
	retryDelay     backoff.Strategy
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithAttemptTimeout bounds the wait for each provider's first item.
func WithAttemptTimeout(d time.Duration) Option {
	return func(s *Sequencer) { s.attemptTimeout = d }
}

// WithRetryDelay inserts a backoff delay before each fallback attempt.
func WithRetryDelay(strategy backoff.Strategy) Option {
	return func(s *Sequencer) { s.retryDelay = strategy }
}

// New creates a sequencer over the given provider order.
func New(logger *slog.Logger, attempts []Attempt, opts ...Option) *Sequencer {
	s := &Sequencer{
		attempts:       attempts,
		logger:         logger,
		attemptTimeout: DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream runs the failover sequence and returns the winning provider's
// stream. The returned channel is always closed when the sequence ends.
// Stream itself never fails: provider errors select the next provider,
// and total exhaustion yields the synthetic no-provider item.
func (s *Sequencer) Stream(ctx context.Context) <-chan Item {
	out := make(chan Item)
	go s.run(ctx, out)
	return out
}

func (s *Sequencer) run(ctx context.Context, out chan<- Item) {
	defer close(out)

	for i, attempt := range s.attempts {
		if i > 0 && s.retryDelay != nil {
			if !sleep(ctx, s.retryDelay.Delay(i)) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		if s.pipe(ctx, attempt, out) {
			return
		}
	}

	// Every provider exhausted. Deliver the synthetic result so the
	// caller still observes a completed stream.
	s.logger.Warn("all providers exhausted", slog.Int("attempts", len(s.attempts)))
	select {
	case out <- syntheticItem():
	case <-ctx.Done():
	}
}

// pipe tries a single provider. It returns true when the provider won
// (its stream was forwarded to completion or the context ended), false
// when the attempt failed and the next provider should be tried.
func (s *Sequencer) pipe(ctx context.Context, attempt Attempt, out chan<- Item) bool {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := attempt.Open(attemptCtx)
	if err != nil {
		s.logger.Warn("provider open failed",
			slog.String("provider", attempt.Name),
			slog.String("error", err.Error()),
		)
		return false
	}

	// The attempt timeout only covers the wait for the first item.
	// Once a provider delivers, it owns the stream.
	timer := time.NewTimer(s.attemptTimeout)
	defer timer.Stop()

	select {
	case first, ok := <-ch:
		if !ok {
			s.logger.Warn("provider returned no results", slog.String("provider", attempt.Name))
			return false
		}
		if first.Err != nil {
			s.logger.Warn("provider failed on first item",
				slog.String("provider", attempt.Name),
				slog.String("error", first.Err.Error()),
			)
			return false
		}

		select {
		case out <- first:
		case <-ctx.Done():
			return true
		}

		s.forward(ctx, ch, out)
		return true

	case <-timer.C:
		s.logger.Warn("provider timed out",
			slog.String("provider", attempt.Name),
			slog.Duration("timeout", s.attemptTimeout),
		)
		return false

	case <-ctx.Done():
		return true
	}
}

// forward pipes the rest of a winning provider's stream through,
// including mid-stream errors.
func (s *Sequencer) forward(ctx context.Context, ch <-chan Item, out chan<- Item) {
	for {
		select {
		case item, ok := <-ch:
			if !ok {
				return
			}
			select {
			case out <- item:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func syntheticItem() Item {
	data, _ := json.Marshal(map[string]string{"message": NoProviderMessage})
	return Item{Provider: SyntheticProvider, Data: data}
}

// sleep waits for d or until ctx is done. Returns false when interrupted.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
