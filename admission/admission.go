// Package admission gates job submission with rate limiting and
// concurrency caps.
//
// The orchestrator accepts every submission by default. Deployments that
// need to protect downstream providers configure a [Controller] with a
// global active-job cap, a per-owner cap, and a token-bucket submit rate
// (golang.org/x/time/rate). Jobs already running are never affected:
// admission only decides whether a new job may enter the system.
//
//	c := admission.NewController(admission.Config{
//	    MaxActive:   100,  // at most 100 jobs in flight
//	    MaxPerOwner: 10,   // at most 10 per owner
//	    SubmitRate:  50,   // max 50 submissions/s
//	    SubmitBurst: 100,  // allow bursts up to 100
//	})
//	if c.Acquire(ownerID) {
//	    defer c.Release(ownerID) // when the job reaches a terminal status
//	    // run the job
//	}
package admission

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config defines admission behaviour. Zero values disable each limit.
type Config struct {
	// MaxActive limits how many jobs may be non-terminal at once across
	// all owners. Zero means unlimited.
	MaxActive int

	// MaxPerOwner limits how many non-terminal jobs a single owner may
	// hold. Zero means unlimited.
	MaxPerOwner int

	// SubmitRate is the maximum sustained submissions per second.
	// Zero disables rate limiting.
	SubmitRate float64

	// SubmitBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if SubmitRate is set but SubmitBurst is zero.
	SubmitBurst int
}

// Enabled reports whether any limit is configured.
func (c Config) Enabled() bool {
	return c.MaxActive > 0 || c.MaxPerOwner > 0 || c.SubmitRate > 0
}

// Controller enforces admission limits. It is safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	config  Config
	limiter *rate.Limiter
	active  int
	owners  map[string]int
}

// NewController creates a Controller with the given configuration.
func NewController(cfg Config) *Controller {
	c := &Controller{
		config: cfg,
		owners: make(map[string]int),
	}
	if cfg.SubmitRate > 0 {
		burst := cfg.SubmitBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.SubmitRate), burst)
	}
	return c
}

// Acquire checks the submit rate and concurrency caps for the given
// owner. If the submission is allowed it increments the active counters
// and returns true. The caller MUST call Release when the job reaches a
// terminal status.
func (c *Controller) Acquire(ownerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.limiter != nil && !c.limiter.Allow() {
		return false
	}
	if c.config.MaxActive > 0 && c.active >= c.config.MaxActive {
		return false
	}
	if ownerID != "" && c.config.MaxPerOwner > 0 && c.owners[ownerID] >= c.config.MaxPerOwner {
		return false
	}

	c.active++
	if ownerID != "" {
		c.owners[ownerID]++
	}
	return true
}

// Release decrements the active counters for the owner.
func (c *Controller) Release(ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active > 0 {
		c.active--
	}
	if ownerID != "" {
		if n := c.owners[ownerID]; n > 1 {
			c.owners[ownerID] = n - 1
		} else {
			delete(c.owners, ownerID)
		}
	}
}

// ActiveCount returns the number of admitted jobs currently in flight.
func (c *Controller) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// OwnerCount returns the number of admitted jobs held by an owner.
func (c *Controller) OwnerCount(ownerID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owners[ownerID]
}
