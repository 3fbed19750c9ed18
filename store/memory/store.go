// Package memory provides a fully in-memory store backend.
// Safe for concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/seeker"
	"github.com/xraph/seeker/id"
	"github.com/xraph/seeker/job"
)

// Ensure Store implements the job subsystem store at compile time.
// We can't import store here (import cycle), so we verify the subsystem.
var _ job.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*job.Job
}

// New returns a new empty Store.
func New() *Store {
	return &Store{jobs: make(map[string]*job.Job)}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// CreateJob persists a new job in pending state.
func (m *Store) CreateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, exists := m.jobs[key]; exists {
		return seeker.ErrJobAlreadyExists
	}
	cp := *j
	m.jobs[key] = &cp
	return nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, seeker.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// UpdateStatus applies a lifecycle transition. Terminal jobs are never
// modified: the transition returns seeker.ErrJobTerminal instead, which
// is what keeps the lifecycle monotonic under racing writers.
func (m *Store) UpdateStatus(_ context.Context, jobID id.JobID, upd job.StatusUpdate) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, seeker.ErrJobNotFound
	}
	if j.Status.Terminal() {
		return nil, seeker.ErrJobTerminal
	}
	if !j.Status.CanTransition(upd.Status) {
		return nil, seeker.ErrInvalidStatus
	}

	now := time.Now().UTC()
	j.Status = upd.Status
	j.UpdatedAt = now

	switch upd.Status {
	case job.StatusRunning:
		n := now
		j.StartedAt = &n
	case job.StatusCompleted:
		n := now
		j.CompletedAt = &n
		j.Result = upd.Result
		j.Progress = 100
	case job.StatusFailed:
		n := now
		j.CompletedAt = &n
		j.ErrorMessage = upd.ErrorMessage
	case job.StatusCancelled:
		n := now
		j.CompletedAt = &n
	}

	cp := *j
	return &cp, nil
}

// UpdateProgress records progress and phase for a running job.
// Progress never decreases and is clamped to [0, 100].
func (m *Store) UpdateProgress(_ context.Context, jobID id.JobID, progress int, phase string) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, seeker.ErrJobNotFound
	}
	if j.Status.Terminal() {
		return nil, seeker.ErrJobTerminal
	}

	if progress > 100 {
		progress = 100
	}
	if progress > j.Progress {
		j.Progress = progress
	}
	if phase != "" {
		j.Phase = phase
	}
	j.UpdatedAt = time.Now().UTC()

	cp := *j
	return &cp, nil
}

// ListActive returns an owner's non-terminal jobs, most recent first.
func (m *Store) ListActive(_ context.Context, ownerID string) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*job.Job, 0)
	for _, j := range m.jobs {
		if j.Status.Terminal() {
			continue
		}
		if ownerID != "" && j.OwnerID != ownerID {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sortByCreatedDesc(out)
	return out, nil
}

// ListJobs returns an owner's jobs, most recent first.
func (m *Store) ListJobs(_ context.Context, ownerID string, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*job.Job, 0)
	for _, j := range m.jobs {
		if ownerID != "" && j.OwnerID != ownerID {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sortByCreatedDesc(out)

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []*job.Job{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// CountJobs returns the number of jobs matching the given options.
func (m *Store) CountJobs(_ context.Context, opts job.CountOpts) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, j := range m.jobs {
		if opts.OwnerID != "" && j.OwnerID != opts.OwnerID {
			continue
		}
		if opts.Status != "" && j.Status != opts.Status {
			continue
		}
		n++
	}
	return n, nil
}

// DeleteJob removes a job by ID.
func (m *Store) DeleteJob(_ context.Context, jobID id.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := jobID.String()
	if _, ok := m.jobs[key]; !ok {
		return seeker.ErrJobNotFound
	}
	delete(m.jobs, key)
	return nil
}

// sortByCreatedDesc orders jobs newest first, with ID as a tie-breaker
// for jobs created in the same instant.
func sortByCreatedDesc(jobs []*job.Job) {
	sort.Slice(jobs, func(i, k int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
		}
		return jobs[i].ID.String() > jobs[k].ID.String()
	})
}
