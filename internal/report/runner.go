package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/bagaart/TaskFlow/internal/metrics"
	"github.com/bagaart/TaskFlow/internal/models"
	"github.com/bagaart/TaskFlow/internal/repository"
)

const DefaultReportsDir = "instance/reports"

// Notifier is told about every terminal transition the runner performs.
type Notifier interface {
	ReportFinished(ctx context.Context, rep *models.Report, recipient *models.User) error
}

type RunnerConfig struct {
	ReportsDir string
	FontDir    string
	WorkerID   string
	Timeout    time.Duration
	Notifier   Notifier
}

// Runner executes one report job: claim, aggregate, render, then a single
// conditional terminal update.
type Runner struct {
	store      repository.Store
	aggregator *Aggregator
	renderers  map[models.ReportFormat]Renderer
	dir        string
	workerID   string
	timeout    time.Duration
	notifier   Notifier
	now        func() time.Time
}

func NewRunner(store repository.Store, cfg RunnerConfig) *Runner {
	dir := cfg.ReportsDir
	if dir == "" {
		dir = DefaultReportsDir
	}

	r := &Runner{
		store:      store,
		aggregator: NewAggregator(store),
		renderers:  make(map[models.ReportFormat]Renderer),
		dir:        dir,
		workerID:   cfg.WorkerID,
		timeout:    cfg.Timeout,
		notifier:   cfg.Notifier,
		now:        time.Now,
	}
	r.RegisterRenderer(JSONRenderer{})
	r.RegisterRenderer(NewPDFRenderer(cfg.FontDir))
	return r
}

func (r *Runner) RegisterRenderer(renderer Renderer) {
	r.renderers[renderer.Format()] = renderer
}

// Run processes the report with the given id. A report that is missing,
// already claimed or terminal is left untouched and Run returns nil.
// A generation failure is recorded on the report and also returned.
func (r *Runner) Run(ctx context.Context, reportID int64) error {
	claimed, err := r.store.ClaimReport(ctx, reportID, r.workerID)
	if err != nil {
		return fmt.Errorf("failed to claim report %d: %w", reportID, err)
	}
	if !claimed {
		log.Printf("[Report %d] Not pending or already claimed, skipping", reportID)
		return nil
	}

	rep, err := r.store.GetReport(ctx, reportID)
	if err != nil {
		r.fail(ctx, &models.Report{ID: reportID}, err)
		return fmt.Errorf("failed to load report %d: %w", reportID, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	log.Printf("[Report %d] Generating %s report (format: %s, worker: %s)", rep.ID, rep.Type, rep.Format, r.workerID)
	start := r.now()

	path, err := r.generate(ctx, rep, start)
	if err != nil {
		metrics.RecordReportFailed(string(rep.Type), string(rep.Format), r.now().Sub(start))
		r.fail(ctx, rep, err)
		return err
	}

	finishCtx, cancel := terminalContext(ctx)
	defer cancel()

	completedAt := r.now()
	if err := r.store.CompleteReport(finishCtx, rep.ID, path, completedAt); err != nil {
		removeFile(path)
		if errors.Is(err, repository.ErrNotPending) {
			log.Printf("[Report %d] Report left pending state during generation, discarding %s", rep.ID, path)
			return nil
		}
		log.Printf("[Report %d] Failed to mark report completed: %v", rep.ID, err)
		r.fail(ctx, rep, err)
		return err
	}

	metrics.RecordReportCompleted(string(rep.Type), string(rep.Format), completedAt.Sub(start))
	log.Printf("[Report %d] Completed in %v: %s", rep.ID, completedAt.Sub(start), path)

	rep.Status = models.ReportCompleted
	rep.FilePath = &path
	rep.CompletedAt = &completedAt
	r.notify(finishCtx, rep)
	return nil
}

func (r *Runner) generate(ctx context.Context, rep *models.Report, startedAt time.Time) (string, error) {
	renderer, ok := r.renderers[rep.Format]
	if !ok {
		return "", &ValidationError{Field: "format", Message: fmt.Sprintf("unsupported format %q", rep.Format)}
	}

	ds, err := r.aggregator.Build(ctx, rep.Type)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	opts := RenderOptions{
		IncludeCharts: rep.BoolParam("include_charts"),
		GeneratedAt:   startedAt,
	}
	if err := renderer.Render(ctx, ds, opts, &buf); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return r.writeArtifact(rep, startedAt, buf.Bytes())
}

// ArtifactName is {report_type}_{report_id}_{timestamp}.{ext}.
func ArtifactName(rep *models.Report, at time.Time) string {
	return fmt.Sprintf("%s_%d_%s.%s", rep.Type, rep.ID, at.Format(FileTimestampLayout), rep.Format.Ext())
}

// writeArtifact writes through a temp file in the reports directory and
// renames it into place so a partial file is never visible.
func (r *Runner) writeArtifact(rep *models.Report, at time.Time, data []byte) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	final := filepath.Join(r.dir, ArtifactName(rep, at))
	tmp, err := os.CreateTemp(r.dir, ".report-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		removeFile(tmp.Name())
		return "", fmt.Errorf("failed to write report file: %w", errors.Join(writeErr, closeErr))
	}

	if err := os.Rename(tmp.Name(), final); err != nil {
		removeFile(tmp.Name())
		return "", fmt.Errorf("failed to move report file into place: %w", err)
	}

	return final, nil
}

// fail records the error on the report. It never returns an error; store
// problems are logged.
func (r *Runner) fail(ctx context.Context, rep *models.Report, cause error) {
	msg := cause.Error()
	if msg == "" {
		msg = "report generation failed"
	}

	finishCtx, cancel := terminalContext(ctx)
	defer cancel()

	at := r.now()
	if err := r.store.FailReport(finishCtx, rep.ID, msg, at); err != nil {
		log.Printf("[Report %d] Failed to mark report failed: %v", rep.ID, err)
		return
	}
	log.Printf("[Report %d] Failed: %s", rep.ID, msg)

	rep.Status = models.ReportFailed
	rep.ErrorMessage = &msg
	rep.CompletedAt = &at
	r.notify(finishCtx, rep)
}

func (r *Runner) notify(ctx context.Context, rep *models.Report) {
	if r.notifier == nil || rep.RequestedBy == 0 {
		return
	}

	u, err := r.store.GetUser(ctx, rep.RequestedBy)
	if err != nil {
		log.Printf("[Report %d] Failed to load requester %d: %v", rep.ID, rep.RequestedBy, err)
		return
	}
	if err := r.notifier.ReportFinished(ctx, rep, u); err != nil {
		log.Printf("[Report %d] Failed to send notification: %v", rep.ID, err)
	}
}

// terminalContext outlives cancellation of the job so the final status
// update still reaches the store.
func terminalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to remove %s: %v", path, err)
	}
}
