// Package metrics provides Prometheus metrics for the TaskFlow API, the job queue and report generation.
package metrics

import (
	"time"

	"github.com/bagaart/TaskFlow/internal/job"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsRequested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_reports_requested_total",
			Help: "Total number of reports requested",
		},
		[]string{"type", "format"},
	)
	ReportsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_reports_completed_total",
			Help: "Total number of reports generated successfully",
		},
		[]string{"type", "format"},
	)
	ReportsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_reports_failed_total",
			Help: "Total number of reports that failed",
		},
		[]string{"type", "format"},
	)
	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskflow_report_duration_seconds",
			Help:    "Report generation duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"type", "format", "status"},
	)
	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_jobs_enqueued_total",
			Help: "Total number of jobs enqueued",
		},
		[]string{"type", "priority"},
	)
	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_jobs_completed_total",
			Help: "Total number of jobs completed successfully",
		},
		[]string{"type"},
	)
	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_jobs_failed_total",
			Help: "Total number of jobs that failed",
		},
		[]string{"type"},
	)
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskflow_job_duration_seconds",
			Help:    "Job execution duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"type", "status"},
	)
	JobWaitTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskflow_job_wait_time_seconds",
			Help:    "Time jobs spend waiting in queue before execution",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		},
		[]string{"type", "priority"},
	)
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_backups_total",
			Help: "Total number of database backups by outcome",
		},
		[]string{"status"},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskflow_queue_depth",
			Help: "Current depth of the job queue",
		},
	)
	ReportsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskflow_reports",
			Help: "Current number of reports by status",
		},
		[]string{"status"},
	)
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskflow_workers_active",
			Help: "Number of currently active workers",
		},
	)
)

func RecordReportRequested(reportType, format string) {
	ReportsRequested.WithLabelValues(reportType, format).Inc()
}

func RecordReportCompleted(reportType, format string, duration time.Duration) {
	ReportsCompleted.WithLabelValues(reportType, format).Inc()
	ReportDuration.WithLabelValues(reportType, format, "completed").Observe(duration.Seconds())
}

func RecordReportFailed(reportType, format string, duration time.Duration) {
	ReportsFailed.WithLabelValues(reportType, format).Inc()
	ReportDuration.WithLabelValues(reportType, format, "failed").Observe(duration.Seconds())
}

func RecordJobEnqueued(jobType string, priority job.Priority) {
	JobsEnqueued.WithLabelValues(jobType, priority.String()).Inc()
}

func RecordJobCompleted(jobType string, duration time.Duration) {
	JobsCompleted.WithLabelValues(jobType).Inc()
	JobDuration.WithLabelValues(jobType, "completed").Observe(duration.Seconds())
}

func RecordJobFailed(jobType string, duration time.Duration) {
	JobsFailed.WithLabelValues(jobType).Inc()
	JobDuration.WithLabelValues(jobType, "failed").Observe(duration.Seconds())
}

func RecordJobWaitTime(jobType string, priority job.Priority, waitTime time.Duration) {
	JobWaitTime.WithLabelValues(jobType, priority.String()).Observe(waitTime.Seconds())
}

func RecordBackup(status string) {
	BackupsTotal.WithLabelValues(status).Inc()
}

// UpdateReportGauges replaces the per-status report gauge with counts.
func UpdateReportGauges(counts map[string]int) {
	ReportsByStatus.Reset()
	for status, count := range counts {
		ReportsByStatus.WithLabelValues(status).Set(float64(count))
	}
}

func UpdateQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

func UpdateActiveWorkers(count int) {
	WorkersActive.Set(float64(count))
}

func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
