package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/seeker/job"
)

// Timeout returns middleware that enforces a per-job execution deadline.
// Jobs with a non-zero Timeout use their own value; everything else falls
// back to the supplied default. When the deadline is exceeded the context
// is cancelled and the handler should return context.DeadlineExceeded.
func Timeout(logger *slog.Logger, def time.Duration) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		d := j.Timeout
		if d <= 0 {
			d = def
		}
		if d > 0 {
			logger.Debug("job timeout set",
				slog.String("job_id", j.ID.String()),
				slog.Duration("timeout", d),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
