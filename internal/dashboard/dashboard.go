// Package dashboard implements the admin monitoring endpoints for report and job status.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/bagaart/TaskFlow/internal/access"
	"github.com/bagaart/TaskFlow/internal/auth"
	"github.com/bagaart/TaskFlow/internal/httputil"
	"github.com/bagaart/TaskFlow/internal/job"
	"github.com/bagaart/TaskFlow/internal/metrics"
	"github.com/bagaart/TaskFlow/internal/models"
)

type JobSource interface {
	GetAllJobs(ctx context.Context) ([]*job.Job, error)
	Depth(ctx context.Context) (int64, error)
}

type ReportCounter interface {
	CountReportsByStatus(ctx context.Context) (map[models.ReportStatus]int, error)
}

type Dashboard struct {
	jobs    JobSource
	reports ReportCounter
	guard   *access.Guard
}

type Stats struct {
	TotalReports     int            `json:"total_reports"`
	PendingReports   int            `json:"pending_reports"`
	CompletedReports int            `json:"completed_reports"`
	FailedReports    int            `json:"failed_reports"`
	QueueDepth       int64          `json:"queue_depth"`
	RunningJobs      int            `json:"running_jobs"`
	FailedJobs       int            `json:"failed_jobs"`
	JobsByType       map[string]int `json:"jobs_by_type"`
	AverageWaitTime  string         `json:"average_wait_time"`
	LastUpdated      time.Time      `json:"last_updated"`
}

type JobHistory struct {
	JobID       string     `json:"job_id"`
	Type        string     `json:"type"`
	Status      job.Status `json:"status"`
	WorkerID    string     `json:"worker_id,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Duration    string     `json:"duration"`
}

func NewDashboard(jobs JobSource, reports ReportCounter, guard *access.Guard) *Dashboard {
	return &Dashboard{jobs: jobs, reports: reports, guard: guard}
}

func (d *Dashboard) authorize(w http.ResponseWriter, r *http.Request) bool {
	err := d.guard.Authorize(r.Context(), auth.UserFromContext(r.Context()), access.AdminResource, access.ActionView)
	switch {
	case err == nil:
		return true
	case errors.Is(err, access.ErrForbidden):
		httputil.WriteJSONError(w, "Access denied", http.StatusForbidden)
	default:
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
	}
	return false
}

func (d *Dashboard) GetStats(w http.ResponseWriter, r *http.Request) {
	if !d.authorize(w, r) {
		return
	}
	ctx := r.Context()

	counts, err := d.reports.CountReportsByStatus(ctx)
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	jobs, err := d.jobs.GetAllJobs(ctx)
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	depth, err := d.jobs.Depth(ctx)
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	stats := Stats{
		PendingReports:   counts[models.ReportPending],
		CompletedReports: counts[models.ReportCompleted],
		FailedReports:    counts[models.ReportFailed],
		QueueDepth:       depth,
		JobsByType:       make(map[string]int),
		LastUpdated:      time.Now(),
	}
	stats.TotalReports = stats.PendingReports + stats.CompletedReports + stats.FailedReports

	var totalWaitTime time.Duration
	waitCount := 0

	for _, j := range jobs {
		switch j.Status {
		case job.StatusRunning:
			stats.RunningJobs++
		case job.StatusFailed:
			stats.FailedJobs++
		}

		stats.JobsByType[j.Type]++

		if j.StartedAt != nil {
			totalWaitTime += j.StartedAt.Sub(j.CreatedAt)
			waitCount++
		}
	}

	if waitCount > 0 {
		avgWait := totalWaitTime / time.Duration(waitCount)
		stats.AverageWaitTime = avgWait.Round(time.Millisecond).String()
	} else {
		stats.AverageWaitTime = "N/A"
	}

	gauges := make(map[string]int, len(counts))
	for status, n := range counts {
		gauges[string(status)] = n
	}
	metrics.UpdateReportGauges(gauges)
	metrics.UpdateQueueDepth(int(depth))

	httputil.WriteJSON(w, stats, http.StatusOK)
}

// GetRecentJobs lists jobs finished in the last 24 hours, newest first.
func (d *Dashboard) GetRecentJobs(w http.ResponseWriter, r *http.Request) {
	if !d.authorize(w, r) {
		return
	}

	jobs, err := d.jobs.GetAllJobs(r.Context())
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	history := []JobHistory{}

	for _, j := range jobs {
		if j.CompletedAt == nil || j.CompletedAt.Before(cutoff) {
			continue
		}

		var duration string
		if j.StartedAt != nil {
			duration = j.CompletedAt.Sub(*j.StartedAt).Round(time.Millisecond).String()
		}

		history = append(history, JobHistory{
			JobID:       j.ID,
			Type:        j.Type,
			Status:      j.Status,
			WorkerID:    j.WorkerID,
			Error:       j.Error,
			CreatedAt:   j.CreatedAt,
			CompletedAt: j.CompletedAt,
			Duration:    duration,
		})
	}

	sort.Slice(history, func(a, b int) bool {
		return history[a].CompletedAt.After(*history[b].CompletedAt)
	})

	httputil.WriteJSON(w, history, http.StatusOK)
}
