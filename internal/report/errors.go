package report

import (
	"errors"
	"fmt"

	"github.com/bagaart/TaskFlow/internal/models"
)

var (
	ErrReportNotReady  = errors.New("report is not completed")
	ErrArtifactMissing = errors.New("report file not found")
)

// ValidationError rejects a report request before any row is created.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// RenderError wraps any failure while producing an artifact.
type RenderError struct {
	Format models.ReportFormat
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render %s report: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
