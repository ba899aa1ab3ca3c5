// Package handlers provides job handlers for the worker.
// Each handler adapts one job type to the service that does the work.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bagaart/TaskFlow/internal/job"
	"github.com/bagaart/TaskFlow/internal/worker"
)

var ErrMissingReportID = errors.New("missing 'report_id' field")

type ReportRunner interface {
	Run(ctx context.Context, reportID int64) error
}

type BackupCreator interface {
	Create(ctx context.Context) (string, error)
}

// GenerateReport runs the report referenced by the job payload.
func GenerateReport(runner ReportRunner) worker.JobHandler {
	return func(ctx context.Context, j *job.Job) error {
		reportID, ok := j.ReportID()
		if !ok {
			return ErrMissingReportID
		}

		log.Printf("[Job %s] Generating report %d", j.ID, reportID)
		if err := runner.Run(ctx, reportID); err != nil {
			return fmt.Errorf("report %d: %w", reportID, err)
		}
		return nil
	}
}

// CreateBackup dumps the database and stores the file path in the job payload.
func CreateBackup(backups BackupCreator) worker.JobHandler {
	return func(ctx context.Context, j *job.Job) error {
		path, err := backups.Create(ctx)
		if err != nil {
			return err
		}

		if j.Payload == nil {
			j.Payload = make(map[string]any)
		}
		j.Payload["file"] = path
		log.Printf("[Job %s] Backup written to %s", j.ID, path)
		return nil
	}
}

// Register wires the TaskFlow handlers into w. A nil backups skips the backup job type.
func Register(w *worker.Worker, runner ReportRunner, backups BackupCreator) {
	w.RegisterHandler(job.TypeGenerateReport, GenerateReport(runner))
	if backups != nil {
		w.RegisterHandler(job.TypeCreateBackup, CreateBackup(backups))
	}
}
