package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/seeker/ext"
	"github.com/xraph/seeker/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*MetricsExtension)(nil)
	_ ext.JobCreated   = (*MetricsExtension)(nil)
	_ ext.JobStarted   = (*MetricsExtension)(nil)
	_ ext.JobCompleted = (*MetricsExtension)(nil)
	_ ext.JobFailed    = (*MetricsExtension)(nil)
	_ ext.JobCancelled = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle metrics via Prometheus.
// Register it as a Seeker extension to automatically track job creation
// rates, completion counts, failure rates, cancellations, run durations,
// and the number of jobs currently executing.
type MetricsExtension struct {
	JobsCreated   prometheus.Counter
	JobsStarted   prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsCancelled prometheus.Counter
	JobDuration   prometheus.Histogram
	JobsRunning   prometheus.Gauge

	reg prometheus.Registerer
}

// NewMetricsExtension creates a MetricsExtension registered with the
// default Prometheus registerer.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsExtensionWithRegisterer creates a MetricsExtension with the
// provided Registerer. Pass prometheus.NewRegistry() in tests to avoid
// duplicate registration panics.
func NewMetricsExtensionWithRegisterer(reg prometheus.Registerer) *MetricsExtension {
	m := &MetricsExtension{
		reg: reg,
		JobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seeker_jobs_created_total",
			Help: "Total number of jobs accepted and persisted",
		}),
		JobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seeker_jobs_started_total",
			Help: "Total number of jobs that began execution",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seeker_jobs_completed_total",
			Help: "Total number of jobs completed successfully",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seeker_jobs_failed_total",
			Help: "Total number of jobs that failed terminally",
		}),
		JobsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seeker_jobs_cancelled_total",
			Help: "Total number of jobs cancelled",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "seeker_job_duration_seconds",
			Help:    "Job execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		JobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seeker_jobs_running",
			Help: "Current number of jobs executing",
		}),
	}

	reg.MustRegister(
		m.JobsCreated,
		m.JobsStarted,
		m.JobsCompleted,
		m.JobsFailed,
		m.JobsCancelled,
		m.JobDuration,
		m.JobsRunning,
	)

	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ObserveStreamDrops registers a gauge that reports the number of stream
// events dropped to full subscriber buffers. The callback is invoked on
// every scrape.
func (m *MetricsExtension) ObserveStreamDrops(fn func() float64) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "seeker_stream_dropped_events",
		Help: "Events dropped due to full subscriber buffers",
	}, fn))
}

// OnJobCreated implements ext.JobCreated.
func (m *MetricsExtension) OnJobCreated(_ context.Context, _ *job.Job) error {
	m.JobsCreated.Inc()
	return nil
}

// OnJobStarted implements ext.JobStarted.
func (m *MetricsExtension) OnJobStarted(_ context.Context, _ *job.Job) error {
	m.JobsStarted.Inc()
	m.JobsRunning.Inc()
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(_ context.Context, _ *job.Job, elapsed time.Duration) error {
	m.JobsCompleted.Inc()
	m.JobsRunning.Dec()
	m.JobDuration.Observe(elapsed.Seconds())
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(_ context.Context, _ *job.Job, _ error) error {
	m.JobsFailed.Inc()
	m.JobsRunning.Dec()
	return nil
}

// OnJobCancelled implements ext.JobCancelled.
// Only jobs that actually started count against the running gauge;
// jobs cancelled while still pending never incremented it.
func (m *MetricsExtension) OnJobCancelled(_ context.Context, j *job.Job) error {
	m.JobsCancelled.Inc()
	if j.StartedAt != nil {
		m.JobsRunning.Dec()
	}
	return nil
}
