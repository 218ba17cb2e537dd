// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// GuidanceResolved counts resolver outcomes. rule is empty when nothing matched.
	GuidanceResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guidance_resolved_total",
			Help: "Guidance resolutions by source, matching rule and urgency",
		},
		[]string{"source", "rule", "urgency"},
	)

	ApplicationCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_cache_lookups_total",
			Help: "Application list cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	NudgesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guidance_nudges_sent_total",
			Help: "Guidance nudges delivered by channel",
		},
		[]string{"channel"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "method", "status"},
	)
)

// NoGuidance is the rule and urgency label used when the resolver returns nothing.
const NoGuidance = "none"

// RecordGuidance increments GuidanceResolved. Pass an empty urgency for no result.
func RecordGuidance(source, rule, urgency string) {
	if rule == "" {
		rule = NoGuidance
	}
	if urgency == "" {
		urgency = NoGuidance
	}
	GuidanceResolved.WithLabelValues(source, rule, urgency).Inc()
}
