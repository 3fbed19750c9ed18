package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/seeker"
	"github.com/xraph/seeker/id"
	"github.com/xraph/seeker/job"
)

// CreateJob stores the job as a Hash and indexes it in the enumeration,
// active, and per-owner sets.
func (s *Store) CreateJob(ctx context.Context, j *job.Job) error {
	jID := j.ID.String()
	key := jobKey(jID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("seeker/redis: create check exists: %w", err)
	}
	if exists > 0 {
		return seeker.ErrJobAlreadyExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, jobToMap(j))
	pipe.SAdd(ctx, jobIDsKey, jID)
	pipe.SAdd(ctx, activeKey, jID)
	if j.OwnerID != "" {
		pipe.ZAdd(ctx, ownerKey(j.OwnerID), goredis.Z{
			Score:  float64(j.CreatedAt.UnixMilli()),
			Member: jID,
		})
	}

	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("seeker/redis: create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return s.getJobByKey(ctx, jobKey(jobID.String()))
}

// updateStatusRetries bounds optimistic-lock retries against concurrent
// writers sharing the same Redis instance.
const updateStatusRetries = 3

// UpdateStatus applies a lifecycle transition. Terminal jobs are refused
// unchanged so the lifecycle stays monotonic. The transition check and
// write run under WATCH so two replicas racing the same job cannot both
// pass the terminal guard.
func (s *Store) UpdateStatus(ctx context.Context, jobID id.JobID, upd job.StatusUpdate) (*job.Job, error) {
	jID := jobID.String()
	key := jobKey(jID)

	var updated *job.Job
	txn := func(tx *goredis.Tx) error {
		j, err := getJob(ctx, tx, key)
		if err != nil {
			return err
		}
		if j.Status.Terminal() {
			return seeker.ErrJobTerminal
		}
		if !j.Status.CanTransition(upd.Status) {
			return seeker.ErrInvalidStatus
		}

		now := time.Now().UTC()
		j.Status = upd.Status
		j.UpdatedAt = now

		fields := map[string]interface{}{
			"status":     string(upd.Status),
			"updated_at": now.Format(time.RFC3339Nano),
		}
		switch upd.Status {
		case job.StatusRunning:
			n := now
			j.StartedAt = &n
			fields["started_at"] = now.Format(time.RFC3339Nano)
		case job.StatusCompleted:
			n := now
			j.CompletedAt = &n
			j.Result = upd.Result
			j.Progress = 100
			fields["completed_at"] = now.Format(time.RFC3339Nano)
			fields["result"] = string(upd.Result)
			fields["progress"] = "100"
		case job.StatusFailed:
			n := now
			j.CompletedAt = &n
			j.ErrorMessage = upd.ErrorMessage
			fields["completed_at"] = now.Format(time.RFC3339Nano)
			fields["error_message"] = upd.ErrorMessage
		case job.StatusCancelled:
			n := now
			j.CompletedAt = &n
			fields["completed_at"] = now.Format(time.RFC3339Nano)
		}

		if _, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			if upd.Status.Terminal() {
				pipe.SRem(ctx, activeKey, jID)
			}
			return nil
		}); err != nil {
			return err
		}
		updated = j
		return nil
	}

	for i := 0; i < updateStatusRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, goredis.TxFailedErr):
			// A concurrent writer touched the job; re-read and re-check.
			continue
		case errors.Is(err, seeker.ErrJobTerminal),
			errors.Is(err, seeker.ErrInvalidStatus),
			errors.Is(err, seeker.ErrJobNotFound):
			return nil, err
		default:
			return nil, fmt.Errorf("seeker/redis: update status: %w", err)
		}
	}
	return nil, fmt.Errorf("seeker/redis: update status %s: %w", jID, goredis.TxFailedErr)
}

// UpdateProgress records progress and phase for a running job.
// Progress never decreases and is clamped to [0, 100].
func (s *Store) UpdateProgress(ctx context.Context, jobID id.JobID, progress int, phase string) (*job.Job, error) {
	key := jobKey(jobID.String())

	j, err := s.getJobByKey(ctx, key)
	if err != nil {
		return nil, err
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
	now := time.Now().UTC()
	j.UpdatedAt = now

	_, err = s.client.HSet(ctx, key,
		"progress", strconv.Itoa(j.Progress),
		"phase", j.Phase,
		"updated_at", now.Format(time.RFC3339Nano),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("seeker/redis: update progress: %w", err)
	}
	return j, nil
}

// ListActive returns an owner's non-terminal jobs, most recent first.
func (s *Store) ListActive(ctx context.Context, ownerID string) ([]*job.Job, error) {
	ids, err := s.client.SMembers(ctx, activeKey).Result()
	if err != nil {
		return nil, fmt.Errorf("seeker/redis: list active smembers: %w", err)
	}

	jobs := make([]*job.Job, 0, len(ids))
	for _, jID := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(jID))
		if getErr != nil {
			continue // skip missing
		}
		if j.Status.Terminal() {
			continue
		}
		if ownerID != "" && j.OwnerID != ownerID {
			continue
		}
		jobs = append(jobs, j)
	}
	sortByCreatedDesc(jobs)
	return jobs, nil
}

// ListJobs returns an owner's jobs, most recent first. Owner-scoped
// queries use the per-owner sorted set; unscoped queries enumerate all.
func (s *Store) ListJobs(ctx context.Context, ownerID string, opts job.ListOpts) ([]*job.Job, error) {
	var ids []string
	var err error

	if ownerID != "" {
		stop := int64(-1)
		if opts.Limit > 0 {
			stop = int64(opts.Offset + opts.Limit - 1)
		}
		ids, err = s.client.ZRevRange(ctx, ownerKey(ownerID), int64(opts.Offset), stop).Result()
		if err != nil {
			return nil, fmt.Errorf("seeker/redis: list jobs zrevrange: %w", err)
		}

		jobs := make([]*job.Job, 0, len(ids))
		for _, jID := range ids {
			j, getErr := s.getJobByKey(ctx, jobKey(jID))
			if getErr != nil {
				continue
			}
			jobs = append(jobs, j)
		}
		return jobs, nil
	}

	ids, err = s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("seeker/redis: list jobs smembers: %w", err)
	}

	jobs := make([]*job.Job, 0, len(ids))
	for _, jID := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(jID))
		if getErr != nil {
			continue
		}
		jobs = append(jobs, j)
	}
	sortByCreatedDesc(jobs)

	if opts.Offset > 0 {
		if opts.Offset >= len(jobs) {
			return []*job.Job{}, nil
		}
		jobs = jobs[opts.Offset:]
	}
	if opts.Limit > 0 && len(jobs) > opts.Limit {
		jobs = jobs[:opts.Limit]
	}
	return jobs, nil
}

// CountJobs returns the number of jobs matching the given options.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	ids, err := s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("seeker/redis: count smembers: %w", err)
	}

	var count int64
	for _, jID := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(jID))
		if getErr != nil {
			continue
		}
		if opts.OwnerID != "" && j.OwnerID != opts.OwnerID {
			continue
		}
		if opts.Status != "" && j.Status != opts.Status {
			continue
		}
		count++
	}
	return count, nil
}

// DeleteJob removes a job by ID.
func (s *Store) DeleteJob(ctx context.Context, jobID id.JobID) error {
	jID := jobID.String()
	key := jobKey(jID)

	// Fetch the owner before deleting to clean the per-owner index.
	owner, err := s.client.HGet(ctx, key, "owner_id").Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return seeker.ErrJobNotFound
		}
		return fmt.Errorf("seeker/redis: delete job get owner: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, jobIDsKey, jID)
	pipe.SRem(ctx, activeKey, jID)
	if owner != "" {
		pipe.ZRem(ctx, ownerKey(owner), jID)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("seeker/redis: delete job: %w", err)
	}
	return nil
}

// ── helpers ──

func jobToMap(j *job.Job) map[string]interface{} {
	m := map[string]interface{}{
		"id":            j.ID.String(),
		"type":          string(j.Type),
		"query":         j.Query,
		"params":        string(j.Params),
		"owner_id":      j.OwnerID,
		"status":        string(j.Status),
		"progress":      strconv.Itoa(j.Progress),
		"phase":         j.Phase,
		"error_message": j.ErrorMessage,
		"result":        string(j.Result),
		"timeout":       strconv.FormatInt(int64(j.Timeout), 10),
		"created_at":    j.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":    j.UpdatedAt.Format(time.RFC3339Nano),
	}
	if j.StartedAt != nil {
		m["started_at"] = j.StartedAt.Format(time.RFC3339Nano)
	}
	if j.CompletedAt != nil {
		m["completed_at"] = j.CompletedAt.Format(time.RFC3339Nano)
	}
	return m
}

func (s *Store) getJobByKey(ctx context.Context, key string) (*job.Job, error) {
	return getJob(ctx, s.client, key)
}

// getJob reads a job hash through any command runner, including a
// WATCH transaction.
func getJob(ctx context.Context, c goredis.Cmdable, key string) (*job.Job, error) {
	vals, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("seeker/redis: get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, seeker.ErrJobNotFound
	}
	return mapToJob(vals)
}

func mapToJob(m map[string]string) (*job.Job, error) {
	jID, err := id.ParseJobID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("seeker/redis: parse job id: %w", err)
	}

	progress, _ := strconv.Atoi(m["progress"])           //nolint:errcheck // best-effort parse from trusted Redis data
	timeout, _ := strconv.ParseInt(m["timeout"], 10, 64) //nolint:errcheck // best-effort parse from trusted Redis data

	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	j := &job.Job{
		Entity: seeker.Entity{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
		ID:           jID,
		Type:         job.Type(m["type"]),
		Query:        m["query"],
		OwnerID:      m["owner_id"],
		Status:       job.Status(m["status"]),
		Progress:     progress,
		Phase:        m["phase"],
		ErrorMessage: m["error_message"],
		Timeout:      time.Duration(timeout),
	}
	if v := m["params"]; v != "" {
		j.Params = []byte(v)
	}
	if v := m["result"]; v != "" {
		j.Result = []byte(v)
	}
	if v, ok := m["started_at"]; ok {
		if t, pErr := time.Parse(time.RFC3339Nano, v); pErr == nil {
			j.StartedAt = &t
		}
	}
	if v, ok := m["completed_at"]; ok {
		if t, pErr := time.Parse(time.RFC3339Nano, v); pErr == nil {
			j.CompletedAt = &t
		}
	}
	return j, nil
}

// sortByCreatedDesc orders jobs newest first.
func sortByCreatedDesc(jobs []*job.Job) {
	sort.Slice(jobs, func(i, k int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
		}
		return jobs[i].ID.String() > jobs[k].ID.String()
	})
}
