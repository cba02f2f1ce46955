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

	// QuotationsEvaluated counts eligibility decisions; code is empty for acceptances.
	QuotationsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotations_evaluated_total",
			Help: "Quotation eligibility decisions by outcome and rejection code",
		},
		[]string{"outcome", "code"},
	)

	QuotationsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotations_persisted_total",
			Help: "Quotations written by status and triage flag",
		},
		[]string{"status", "needs_triage"},
	)

	QuotationsReplayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quotations_replayed_total",
			Help: "Submissions answered with a quotation stored by an earlier delivery of the same job",
		},
	)

	SellerAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seller_assignments_total",
			Help: "Round-robin assignment attempts by result",
		},
		[]string{"result"},
	)

	AssignmentRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assignment_retries_total",
			Help: "Round-robin pointer updates retried after a conflict",
		},
	)

	ReferenceCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reference_cache_lookups_total",
			Help: "Pricing rule and blacklist cache lookups by dataset and result",
		},
		[]string{"dataset", "result"},
	)
)
