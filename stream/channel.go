package stream

import (
	"sync"
	"sync/atomic"
	"time"
)

// Channel multicasts events for a single job to its subscribers.
// All subscriber mutation and closing happens under the channel's write
// lock, so publishes under the read lock never race a closing channel.
type Channel struct {
	jobID      string
	bufferSize int

	mu   sync.RWMutex
	subs map[string]*Subscriber

	// closed is set once the job reaches a terminal status. After that
	// the channel retains the terminal event so late subscribers can
	// replay the outcome.
	closed   bool
	closedAt time.Time
	terminal *Event

	// stopHeartbeat ends the heartbeat goroutine. Nil when heartbeats
	// are disabled.
	stopHeartbeat chan struct{}

	dropped atomic.Int64
}

func newChannel(jobID string, bufferSize int, heartbeat time.Duration) *Channel {
	c := &Channel{
		jobID:      jobID,
		bufferSize: bufferSize,
		subs:       make(map[string]*Subscriber),
	}
	if heartbeat > 0 {
		c.stopHeartbeat = make(chan struct{})
		go c.heartbeatLoop(heartbeat)
	}
	return c
}

// JobID returns the job this channel belongs to.
func (c *Channel) JobID() string { return c.jobID }

// Subscribe adds a subscriber to this channel. If the channel is already
// closed, the returned subscriber is preloaded with the retained terminal
// event and is itself closed.
func (c *Channel) Subscribe(subscriberID string) *Subscriber {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return newReplaySubscriber(subscriberID, c.terminal)
	}

	sub := NewSubscriber(subscriberID, c.bufferSize)
	c.subs[subscriberID] = sub
	return sub
}

// Unsubscribe removes and closes a subscriber. No-op for unknown IDs.
func (c *Channel) Unsubscribe(subscriberID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sub, ok := c.subs[subscriberID]; ok {
		delete(c.subs, subscriberID)
		sub.Close()
	}
}

// Publish delivers an event to all current subscribers. Events published
// after the channel closed are discarded.
func (c *Channel) Publish(evt *Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return
	}
	for _, sub := range c.subs {
		if !sub.send(evt) {
			c.dropped.Add(1)
		}
	}
}

// CloseWith delivers the terminal event to every subscriber, closes them
// all, and marks the channel closed. The terminal event is retained for
// replay to late subscribers. Only the first call has any effect.
func (c *Channel) CloseWith(terminal *Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.closedAt = time.Now()
	c.terminal = terminal

	if c.stopHeartbeat != nil {
		close(c.stopHeartbeat)
	}

	for id, sub := range c.subs {
		// Terminal delivery is unconditional: a full buffer evicts its
		// oldest event rather than dropping the outcome.
		c.dropped.Add(int64(sub.sendTerminal(terminal)))
		sub.Close()
		delete(c.subs, id)
	}
}

// Closed reports whether the channel has received its terminal event.
func (c *Channel) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ClosedSince reports when the channel received its terminal event.
func (c *Channel) ClosedSince() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closedAt, c.closed
}

// SubscriberCount returns the number of attached subscribers.
func (c *Channel) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// Dropped returns the number of events dropped across all subscribers.
func (c *Channel) Dropped() int64 { return c.dropped.Load() }

// heartbeatLoop publishes keepalive events until the channel closes.
// Heartbeats let proxies and clients distinguish a quiet job from a
// dead connection.
func (c *Channel) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Publish(&Event{
				Type:      EventHeartbeat,
				JobID:     c.jobID,
				Timestamp: time.Now().UTC(),
			})
		case <-c.stopHeartbeat:
			return
		}
	}
}
