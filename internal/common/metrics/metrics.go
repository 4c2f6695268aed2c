// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	apperrors "nearby-market/internal/common/errors"

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
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
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

	SearchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "market_search_results",
			Help:    "Number of results returned per search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
		},
		[]string{"kind"},
	)

	ShopCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_shop_cache_requests_total",
			Help: "Active-shop cache lookups by result",
		},
		[]string{"result"},
	)

	ChangeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_change_events_total",
			Help: "Change events received from the change feed",
		},
		[]string{"table", "operation"},
	)

	RestockNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_restock_notifications_total",
			Help: "Restock notifications published by status",
		},
		[]string{"status"},
	)
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// ObserveJob records duration and outcome of one job.
func ObserveJob(taskType string, start time.Time, err error) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
	if err != nil {
		WorkerJobsFailed.WithLabelValues(taskType, string(apperrors.CodeOf(err))).Inc()
		return
	}
	WorkerJobsCompleted.WithLabelValues(taskType).Inc()
}

// TrackActive increments the active gauge and returns the matching decrement.
func TrackActive(taskType string) func() {
	g := WorkerJobsActive.WithLabelValues(taskType)
	g.Inc()
	return g.Dec
}
