// Package job defines the envelope that travels through the background queue.
// It carries the job kind, its payload, scheduling and retry metadata, and serialization helpers.
package job

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type (
	Status   string
	Priority int
	Job      struct {
		ID          string         `json:"id"`
		Type        string         `json:"type"`
		Payload     map[string]any `json:"payload"`
		Priority    Priority       `json:"priority"`
		Status      Status         `json:"status"`
		RetryCount  int            `json:"retry_count"`
		MaxRetries  int            `json:"max_retries"`
		CreatedAt   time.Time      `json:"created_at"`
		ScheduledAt time.Time      `json:"scheduled_at"`
		StartedAt   *time.Time     `json:"started_at,omitempty"`
		CompletedAt *time.Time     `json:"completed_at,omitempty"`
		WorkerID    string         `json:"worker_id,omitempty"`
		Error       string         `json:"error,omitempty"`
	}
)

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

const (
	TypeGenerateReport = "generate_report"
	TypeCreateBackup   = "create_backup"
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return strconv.Itoa(int(p))
	}
}

// New builds a pending job. Jobs are not retried unless MaxRetries is raised by the caller.
func New(jobType string, payload map[string]any, priority Priority) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.New().String(),
		Type:        jobType,
		Payload:     payload,
		Priority:    priority,
		Status:      StatusPending,
		MaxRetries:  0,
		RetryCount:  0,
		CreatedAt:   now,
		ScheduledAt: now,
	}
}

// NewReportJob wraps a report id in a generate_report envelope.
func NewReportJob(reportID int64) *Job {
	return New(TypeGenerateReport, map[string]any{"report_id": reportID}, PriorityMedium)
}

// ReportID extracts the report id from a generate_report payload.
// JSON decoding turns numbers into float64, so both integer kinds are accepted.
func (j *Job) ReportID() (int64, bool) {
	switch v := j.Payload["report_id"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

func (j *Job) ToJSON() (string, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func FromJSON(data string) (*Job, error) {
	var j Job
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, err
	}

	return &j, nil
}
