package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/bagaart/TaskFlow/internal/access"
	"github.com/bagaart/TaskFlow/internal/job"
	"github.com/bagaart/TaskFlow/internal/metrics"
	"github.com/bagaart/TaskFlow/internal/models"
	"github.com/bagaart/TaskFlow/internal/repository"
)

const RecentReportsLimit = 50

type Enqueuer interface {
	Enqueue(ctx context.Context, j *job.Job) error
}

type Request struct {
	Type       string         `json:"type"`
	Format     string         `json:"format"`
	Parameters map[string]any `json:"parameters"`
}

// Validate checks the closed enumerations and known parameters.
func (req Request) Validate() error {
	if !models.ReportType(req.Type).Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("must be one of tasks, projects, users (got %q)", req.Type)}
	}
	if !models.ReportFormat(req.Format).Valid() {
		return &ValidationError{Field: "format", Message: fmt.Sprintf("must be json or pdf (got %q)", req.Format)}
	}
	if v, ok := req.Parameters["include_charts"]; ok {
		switch b := v.(type) {
		case bool:
		case string:
			if b != "true" && b != "false" && b != "1" && b != "0" {
				return &ValidationError{Field: "parameters.include_charts", Message: fmt.Sprintf("must be a boolean (got %q)", b)}
			}
		default:
			return &ValidationError{Field: "parameters.include_charts", Message: "must be a boolean"}
		}
	}
	return nil
}

// Service is the admin-facing entry point for requesting, listing and
// downloading reports.
type Service struct {
	store repository.Store
	guard *access.Guard
	queue Enqueuer
}

func NewService(store repository.Store, guard *access.Guard, queue Enqueuer) *Service {
	return &Service{store: store, guard: guard, queue: queue}
}

// Request creates a pending report and enqueues its job without waiting for it.
func (s *Service) Request(ctx context.Context, user *models.User, req Request) (*models.Report, error) {
	if err := s.guard.Authorize(ctx, user, access.AdminResource, access.ActionManage); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rep := &models.Report{
		Type:        models.ReportType(req.Type),
		Format:      models.ReportFormat(req.Format),
		Parameters:  req.Parameters,
		RequestedBy: user.ID,
	}
	if err := s.store.CreateReport(ctx, rep); err != nil {
		return nil, err
	}

	j := job.NewReportJob(rep.ID)
	if err := s.queue.Enqueue(ctx, j); err != nil {
		msg := fmt.Sprintf("failed to enqueue report job: %v", err)
		if ferr := s.store.FailReport(context.WithoutCancel(ctx), rep.ID, msg, time.Now()); ferr != nil {
			log.Printf("[Report %d] Failed to mark report failed: %v", rep.ID, ferr)
		}
		return nil, fmt.Errorf("failed to enqueue report job: %w", err)
	}

	metrics.RecordReportRequested(req.Type, req.Format)
	log.Printf("[Report %d] Requested %s report (format: %s) by user %d, job %s", rep.ID, rep.Type, rep.Format, user.ID, j.ID)
	return rep, nil
}

func (s *Service) List(ctx context.Context, user *models.User) ([]models.Report, error) {
	if err := s.guard.Authorize(ctx, user, access.AdminResource, access.ActionView); err != nil {
		return nil, err
	}
	return s.store.ListRecentReports(ctx, RecentReportsLimit)
}

func (s *Service) Stats(ctx context.Context, user *models.User) (map[models.ReportStatus]int, error) {
	if err := s.guard.Authorize(ctx, user, access.AdminResource, access.ActionView); err != nil {
		return nil, err
	}
	return s.store.CountReportsByStatus(ctx)
}

// Artifact is an opened report file ready to be streamed. The caller closes File.
type Artifact struct {
	File        *os.File
	Name        string
	ContentType string
	Size        int64
}

// Open returns the artifact of a completed report. Any missing piece
// (row, completed status, file) is reported as a not-found condition.
func (s *Service) Open(ctx context.Context, user *models.User, id int64) (*Artifact, error) {
	if err := s.guard.Authorize(ctx, user, access.AdminResource, access.ActionView); err != nil {
		return nil, err
	}

	rep, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Status != models.ReportCompleted || rep.FilePath == nil {
		return nil, ErrReportNotReady
	}

	f, err := os.Open(*rep.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrArtifactMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat report file: %w", err)
	}

	return &Artifact{
		File:        f,
		Name:        filepath.Base(*rep.FilePath),
		ContentType: rep.Format.ContentType(),
		Size:        info.Size(),
	}, nil
}
