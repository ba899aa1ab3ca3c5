// Package models contains the TaskFlow domain entities shared by the store,
// the access guard, the report pipeline and the HTTP layer.
package models

import (
	"fmt"
	"time"
)

type (
	TaskStatus   string
	ProjectRole  string
	ReportType   string
	ReportFormat string
	ReportStatus string
)

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

const (
	RoleMember  ProjectRole = "member"
	RoleManager ProjectRole = "manager"
	RoleAnalyst ProjectRole = "analyst"
)

const (
	ReportTasks    ReportType = "tasks"
	ReportProjects ReportType = "projects"
	ReportUsers    ReportType = "users"
)

const (
	FormatJSON ReportFormat = "json"
	FormatPDF  ReportFormat = "pdf"
)

const (
	ReportPending   ReportStatus = "pending"
	ReportCompleted ReportStatus = "completed"
	ReportFailed    ReportStatus = "failed"
)

// TaskStatuses lists the board columns in display order.
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusDone}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Label returns the human readable column name used on the board and in reports.
func (s TaskStatus) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// ParseTaskStatus accepts both the stored value ("in_progress") and the label ("In Progress").
func ParseTaskStatus(s string) (TaskStatus, error) {
	for _, st := range TaskStatuses {
		if s == string(st) || s == st.Label() {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid task status: %q", s)
}

func (r ProjectRole) Valid() bool {
	switch r {
	case RoleMember, RoleManager, RoleAnalyst:
		return true
	}
	return false
}

func (t ReportType) Valid() bool {
	switch t {
	case ReportTasks, ReportProjects, ReportUsers:
		return true
	}
	return false
}

func (f ReportFormat) Valid() bool {
	switch f {
	case FormatJSON, FormatPDF:
		return true
	}
	return false
}

// Ext is the artifact file extension for the format.
func (f ReportFormat) Ext() string {
	return string(f)
}

// ContentType is the MIME type the artifact is served with.
func (f ReportFormat) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/json"
}

func (s ReportStatus) Terminal() bool {
	return s == ReportCompleted || s == ReportFailed
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProjectMember struct {
	ProjectID int64       `json:"project_id"`
	UserID    int64       `json:"user_id"`
	UserName  string      `json:"user_name,omitempty"`
	Role      ProjectRole `json:"role"`
}

type Task struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	ManagerID   *int64     `json:"manager_id,omitempty"`
	ExecutorIDs []int64    `json:"executor_ids"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsExecutor reports whether userID is assigned to the task.
func (t *Task) IsExecutor(userID int64) bool {
	for _, id := range t.ExecutorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Report is one requested aggregation/export job and its outcome.
// FilePath and ErrorMessage are mutually exclusive and both nil while pending.
type Report struct {
	ID           int64          `json:"id"`
	Type         ReportType     `json:"report_type"`
	Format       ReportFormat   `json:"format"`
	Parameters   map[string]any `json:"parameters"`
	Status       ReportStatus   `json:"status"`
	FilePath     *string        `json:"file_path,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	RequestedBy  int64          `json:"requested_by"`
	ClaimedBy    *string        `json:"claimed_by,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// BoolParam reads a boolean report parameter, accepting JSON booleans and "true"/"1" strings.
func (r *Report) BoolParam(key string) bool {
	v, ok := r.Parameters[key]
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1"
	case float64:
		return b != 0
	}
	return false
}
