package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/seeker/ext"
	"github.com/xraph/seeker/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*Hub)(nil)
	_ ext.JobStarted       = (*Hub)(nil)
	_ ext.JobProgress      = (*Hub)(nil)
	_ ext.JobPartialResult = (*Hub)(nil)
	_ ext.JobCompleted     = (*Hub)(nil)
	_ ext.JobFailed        = (*Hub)(nil)
	_ ext.JobCancelled     = (*Hub)(nil)
	_ ext.Shutdown         = (*Hub)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 64

// DefaultHeartbeatInterval is the default keepalive cadence on open channels.
const DefaultHeartbeatInterval = 15 * time.Second

// DefaultTombstoneTTL is how long a closed channel is retained for
// late-subscriber replay before the sweeper evicts it. Subscribers
// arriving after eviction are served from the job record instead.
const DefaultTombstoneTTL = 5 * time.Minute

// Hub is the live event distributor. It implements the ext.Extension
// hook interfaces to receive job lifecycle events and fans each one out
// on the channel belonging to that job. Channels are created lazily on
// first use and retained as closed tombstones after the job finishes, so
// subscribers racing a terminal transition still observe the outcome.
// Tombstones are swept after a TTL; later subscribers are served a
// replay built from the job record.
type Hub struct {
	logger *slog.Logger

	mu       sync.RWMutex
	channels map[string]*Channel

	// Config.
	bufferSize   int
	heartbeat    time.Duration
	tombstoneTTL time.Duration

	// stopSweep ends the tombstone sweeper. Nil when sweeping is
	// disabled; nilled out again on shutdown.
	stopSweep chan struct{}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) HubOption {
	return func(h *Hub) { h.bufferSize = size }
}

// WithHeartbeatInterval sets the keepalive cadence. Zero disables heartbeats.
func WithHeartbeatInterval(d time.Duration) HubOption {
	return func(h *Hub) { h.heartbeat = d }
}

// WithTombstoneTTL sets how long closed channels are retained for
// late-subscriber replay. Zero disables the sweeper, keeping tombstones
// until Remove.
func WithTombstoneTTL(d time.Duration) HubOption {
	return func(h *Hub) { h.tombstoneTTL = d }
}

// NewHub creates a new event hub.
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		logger:       logger,
		channels:     make(map[string]*Channel),
		bufferSize:   DefaultBufferSize,
		heartbeat:    DefaultHeartbeatInterval,
		tombstoneTTL: DefaultTombstoneTTL,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.tombstoneTTL > 0 {
		h.stopSweep = make(chan struct{})
		go h.sweepLoop(h.stopSweep)
	}
	return h
}

// Name implements ext.Extension.
func (h *Hub) Name() string { return "event-hub" }

// Subscribe attaches a subscriber to a job's channel, creating the
// channel if it doesn't exist yet. Subscribing to an already-finished
// job returns a closed subscriber carrying the terminal event.
func (h *Hub) Subscribe(jobID, subscriberID string) *Subscriber {
	return h.ensure(jobID).Subscribe(subscriberID)
}

// Unsubscribe detaches a subscriber from a job's channel.
func (h *Hub) Unsubscribe(jobID, subscriberID string) {
	h.mu.RLock()
	c, ok := h.channels[jobID]
	h.mu.RUnlock()
	if ok {
		c.Unsubscribe(subscriberID)
	}
}

// Replay builds a closed subscriber carrying a synthetic terminal event
// derived from the job record. Used when a terminal job has no channel
// tombstone, e.g. after a restart.
func (h *Hub) Replay(subscriberID string, j *job.Job) *Subscriber {
	return newReplaySubscriber(subscriberID, TerminalEvent(j))
}

// Remove drops a job's channel, closing any remaining subscribers.
// Called when the job record itself is deleted.
func (h *Hub) Remove(jobID string) {
	h.mu.Lock()
	c, ok := h.channels[jobID]
	delete(h.channels, jobID)
	h.mu.Unlock()

	if ok && !c.Closed() {
		c.CloseWith(&Event{
			Type:      EventCancelled,
			JobID:     jobID,
			Status:    job.StatusCancelled,
			Timestamp: time.Now().UTC(),
		})
	}
}

// Stats returns hub statistics.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st := HubStats{ChannelCount: len(h.channels)}
	for _, c := range h.channels {
		st.SubscriberCount += c.SubscriberCount()
		st.TotalDropped += c.Dropped()
		if c.Closed() {
			st.ClosedChannels++
		}
	}
	return st
}

// HubStats contains hub metrics.
type HubStats struct {
	ChannelCount    int   `json:"channel_count"`
	ClosedChannels  int   `json:"closed_channels"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalDropped    int64 `json:"total_dropped"`
}

// ensure returns the channel for a job, creating it if needed.
func (h *Hub) ensure(jobID string) *Channel {
	h.mu.RLock()
	c, ok := h.channels[jobID]
	h.mu.RUnlock()
	if ok {
		return c
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok = h.channels[jobID]; ok {
		return c
	}
	c = newChannel(jobID, h.bufferSize, h.heartbeat)
	h.channels[jobID] = c
	return c
}

// closeWith routes a terminal event to the job's channel, creating the
// channel first when none exists so the tombstone outlives the job.
func (h *Hub) closeWith(jobID string, evt *Event) {
	h.ensure(jobID).CloseWith(evt)
}

// sweepLoop periodically evicts closed channels older than the TTL.
func (h *Hub) sweepLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(h.tombstoneTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sweepTombstones(time.Now())
		case <-stop:
			return
		}
	}
}

// sweepTombstones removes closed channels whose terminal event aged past
// the TTL. Subscribers arriving afterwards fall back to a replay built
// from the job record.
func (h *Hub) sweepTombstones(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for jobID, c := range h.channels {
		if closedAt, closed := c.ClosedSince(); closed && now.Sub(closedAt) >= h.tombstoneTTL {
			delete(h.channels, jobID)
		}
	}
}

// ── Job lifecycle hooks ─────────────────────────────

func (h *Hub) OnJobStarted(_ context.Context, j *job.Job) error {
	h.ensure(j.ID.String()).Publish(&Event{
		Type:      EventStarted,
		JobID:     j.ID.String(),
		Status:    job.StatusRunning,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (h *Hub) OnJobProgress(_ context.Context, j *job.Job, progress int, phase string) error {
	h.ensure(j.ID.String()).Publish(&Event{
		Type:      EventProgress,
		JobID:     j.ID.String(),
		Status:    job.StatusRunning,
		Progress:  progress,
		Phase:     phase,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (h *Hub) OnJobPartialResult(_ context.Context, j *job.Job, data json.RawMessage) error {
	h.ensure(j.ID.String()).Publish(&Event{
		Type:      EventResultPartial,
		JobID:     j.ID.String(),
		Status:    job.StatusRunning,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	return nil
}

func (h *Hub) OnJobCompleted(_ context.Context, j *job.Job, _ time.Duration) error {
	h.closeWith(j.ID.String(), &Event{
		Type:      EventCompleted,
		JobID:     j.ID.String(),
		Status:    job.StatusCompleted,
		Timestamp: time.Now().UTC(),
		Data:      j.Result,
	})
	return nil
}

func (h *Hub) OnJobFailed(_ context.Context, j *job.Job, jobErr error) error {
	h.closeWith(j.ID.String(), &Event{
		Type:      EventFailed,
		JobID:     j.ID.String(),
		Status:    job.StatusFailed,
		Message:   jobErr.Error(),
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (h *Hub) OnJobCancelled(_ context.Context, j *job.Job) error {
	h.closeWith(j.ID.String(), &Event{
		Type:      EventCancelled,
		JobID:     j.ID.String(),
		Status:    job.StatusCancelled,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// ── Shutdown ────────────────────────────────────────

func (h *Hub) OnShutdown(_ context.Context) error {
	h.mu.Lock()
	channels := h.channels
	h.channels = make(map[string]*Channel)
	if h.stopSweep != nil {
		close(h.stopSweep)
		h.stopSweep = nil
	}
	h.mu.Unlock()

	for jobID, c := range channels {
		if !c.Closed() {
			c.CloseWith(&Event{
				Type:      EventCancelled,
				JobID:     jobID,
				Status:    job.StatusCancelled,
				Timestamp: time.Now().UTC(),
			})
		}
	}
	h.logger.Info("event hub shut down", slog.Int("channels", len(channels)))
	return nil
}
