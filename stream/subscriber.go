package stream

import (
	"sync/atomic"
)

// Subscriber receives events for a single job. Delivery is non-blocking:
// when the subscriber's buffer is full, events are dropped rather than
// stalling the publisher or other subscribers on the same channel.
// Terminal events are exempt: they evict the oldest buffered event to
// make room, so every subscriber observes the job's outcome.
type Subscriber struct {
	// id uniquely identifies this subscriber.
	id string

	// ch is the buffered channel events are sent on.
	ch chan *Event

	// dropped counts events lost to a full buffer.
	dropped atomic.Int64

	// closed prevents double-close of the channel.
	closed atomic.Bool
}

// NewSubscriber creates a subscriber with the given buffer size.
// The buffer holds at least one event so a terminal event always has a
// slot to evict into.
func NewSubscriber(id string, bufferSize int) *Subscriber {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Subscriber{
		id: id,
		ch: make(chan *Event, bufferSize),
	}
}

// newReplaySubscriber builds an already-closed subscriber preloaded with
// a single terminal event. Late subscribers to finished jobs get one of
// these: they read the outcome, then see the channel close.
func newReplaySubscriber(id string, terminal *Event) *Subscriber {
	s := &Subscriber{
		id: id,
		ch: make(chan *Event, 1),
	}
	s.ch <- terminal
	s.closed.Store(true)
	close(s.ch)
	return s
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// C returns the read-only event channel. The channel is closed when the
// job reaches a terminal status or the subscriber is removed.
func (s *Subscriber) C() <-chan *Event { return s.ch }

// Dropped returns the number of events dropped due to a full buffer.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

// send attempts to deliver an event to the subscriber.
// Returns false if the event was dropped.
func (s *Subscriber) send(evt *Event) bool {
	if s.closed.Load() {
		return false
	}

	select {
	case s.ch <- evt:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// sendTerminal delivers a terminal event even when the buffer is full,
// evicting the oldest buffered event to make room. The consumer may be
// draining concurrently; eviction retries until the send lands. Returns
// the number of events evicted.
func (s *Subscriber) sendTerminal(evt *Event) int {
	if s.closed.Load() {
		return 0
	}
	evicted := 0
	for {
		select {
		case s.ch <- evt:
			return evicted
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
			evicted++
		default:
		}
	}
}

// Close closes the subscriber channel. Safe to call multiple times.
func (s *Subscriber) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}
