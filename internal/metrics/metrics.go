// Package metrics provides Prometheus metrics for monitoring sync attempts
// and their ingestion pipeline.
package metrics

import (
	"time"

	"github.com/EastAgile/airbyte/internal/attempt"
	"github.com/EastAgile/airbyte/internal/progress"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttemptsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airbyte_attempts_created_total",
			Help: "Total number of sync attempts created",
		},
		[]string{"job"},
	)
	AttemptsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airbyte_attempts_finished_total",
			Help: "Total number of sync attempts that reached a terminal status",
		},
		[]string{"job", "status"},
	)
	UpdatesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airbyte_stats_updates_applied_total",
			Help: "Total number of stats updates applied to attempts",
		},
		[]string{"job"},
	)
	UpdatesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airbyte_stats_updates_dropped_total",
			Help: "Total number of stats updates that could not be applied",
		},
		[]string{"reason"},
	)
	CatchupsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airbyte_cdc_catchups_total",
			Help: "Total number of CDC streams that reached their target position",
		},
		[]string{"job"},
	)
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airbyte_notifications_sent_total",
			Help: "Total number of completion notifications sent",
		},
		[]string{"status"},
	)
	SyncPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "airbyte_sync_percent_records",
			Help: "Percent of estimated records emitted by the latest attempt of a job",
		},
		[]string{"job"},
	)
	SyncTimeRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "airbyte_sync_time_remaining_ms",
			Help: "Estimated milliseconds remaining for the latest attempt of a job",
		},
		[]string{"job"},
	)
	AttemptsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "airbyte_attempts_by_status",
			Help: "Current number of tracked attempts by status",
		},
		[]string{"status"},
	)
	UpdateQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "airbyte_stats_update_queue_depth",
			Help: "Current number of stats updates waiting to be applied",
		},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airbyte_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airbyte_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func RecordAttemptCreated(jobID string) {
	AttemptsCreated.WithLabelValues(jobID).Inc()
}

func RecordAttemptFinished(jobID string, status attempt.Status) {
	AttemptsFinished.WithLabelValues(jobID, string(status)).Inc()
}

func RecordUpdateApplied(jobID string) {
	UpdatesApplied.WithLabelValues(jobID).Inc()
}

func RecordUpdateDropped(reason string) {
	UpdatesDropped.WithLabelValues(reason).Inc()
}

func RecordCatchup(jobID string) {
	CatchupsDetected.WithLabelValues(jobID).Inc()
}

func RecordNotificationSent(status attempt.Status) {
	NotificationsSent.WithLabelValues(string(status)).Inc()
}

// UpdateProgressGauges publishes the latest estimate for a job. Sentinel
// values are skipped so the gauges only carry computed readings.
func UpdateProgressGauges(jobID string, est progress.Estimate) {
	SyncPercent.WithLabelValues(jobID).Set(float64(est.TotalPercentRecords))
	if est.TimeRemainingMS != progress.Unknown {
		SyncTimeRemaining.WithLabelValues(jobID).Set(float64(est.TimeRemainingMS))
	}
}

func UpdateAttemptGauges(byStatus map[attempt.Status]int) {
	AttemptsByStatus.Reset()
	for status, count := range byStatus {
		AttemptsByStatus.WithLabelValues(string(status)).Set(float64(count))
	}
}

func UpdateUpdateQueueDepth(depth int64) {
	UpdateQueueDepth.Set(float64(depth))
}

func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
