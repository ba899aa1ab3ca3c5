package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bagaart/TaskFlow/internal/models"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("record already exists")
	ErrNotPending = errors.New("report is not pending")
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type ProjectRepository interface {
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id int64) error
	ListProjects(ctx context.Context) ([]models.Project, error)
	ListProjectsForUser(ctx context.Context, userID int64) ([]models.Project, error)
	GetMembership(ctx context.Context, projectID, userID int64) (models.ProjectRole, bool, error)
	AddMember(ctx context.Context, projectID, userID int64, role models.ProjectRole) error
	RemoveMember(ctx context.Context, projectID, userID int64) error
	ListMembers(ctx context.Context) ([]models.ProjectMember, error)
	ListProjectMembers(ctx context.Context, projectID int64) ([]models.ProjectMember, error)
}

type TaskRepository interface {
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	UpdateTaskStatus(ctx context.Context, id int64, status models.TaskStatus) error
	DeleteTask(ctx context.Context, id int64) error
	ListTasks(ctx context.Context) ([]models.Task, error)
	ListProjectTasks(ctx context.Context, projectID int64) ([]models.Task, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	DeleteComment(ctx context.Context, id int64) error
	ListComments(ctx context.Context, taskID int64) ([]models.Comment, error)
}

// ReportRepository persists Report rows. Terminal transitions only apply to
// pending rows and return ErrNotPending otherwise.
type ReportRepository interface {
	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id int64) (*models.Report, error)
	ListRecentReports(ctx context.Context, limit int) ([]models.Report, error)
	ClaimReport(ctx context.Context, id int64, workerID string) (bool, error)
	CompleteReport(ctx context.Context, id int64, filePath string, at time.Time) error
	FailReport(ctx context.Context, id int64, message string, at time.Time) error
	CountReportsByStatus(ctx context.Context) (map[models.ReportStatus]int, error)
}

type Store interface {
	UserRepository
	ProjectRepository
	TaskRepository
	CommentRepository
	ReportRepository
	Close() error
}
