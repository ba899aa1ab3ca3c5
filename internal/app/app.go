// Package app assembles the TaskFlow services from configuration. The server,
// the worker and taskflowctl share it so they build identical runners.
package app

import (
	"errors"
	"log"

	"github.com/bagaart/TaskFlow/internal/backup"
	"github.com/bagaart/TaskFlow/internal/config"
	"github.com/bagaart/TaskFlow/internal/notify"
	"github.com/bagaart/TaskFlow/internal/report"
	"github.com/bagaart/TaskFlow/internal/repository"
	"github.com/bagaart/TaskFlow/internal/worker"
	"github.com/bagaart/TaskFlow/internal/worker/handlers"
	"github.com/google/uuid"
)

// WorkerID returns the configured worker id or a random "worker-xxxxxxxx".
func WorkerID(cfg *config.Config) string {
	if cfg.Worker.ID != "" {
		return cfg.Worker.ID
	}
	return "worker-" + uuid.NewString()[:8]
}

// Notifier returns nil when email delivery is not configured.
func Notifier(cfg *config.Config) report.Notifier {
	n, err := notify.NewSendGridNotifier(cfg.Email.APIKey, cfg.Email.FromName, cfg.Email.FromAddress)
	if err != nil {
		if !errors.Is(err, notify.ErrNotConfigured) {
			log.Printf("Email notifications disabled: %v", err)
		}
		return nil
	}
	return n
}

func Runner(cfg *config.Config, store repository.Store, workerID string) *report.Runner {
	return report.NewRunner(store, report.RunnerConfig{
		ReportsDir: cfg.Reports.Dir,
		FontDir:    cfg.Reports.FontDir,
		WorkerID:   workerID,
		Timeout:    cfg.Reports.Timeout,
		Notifier:   Notifier(cfg),
	})
}

func Backups(cfg *config.Config) *backup.Service {
	return backup.NewService(backup.Config{
		DSN:       cfg.Postgres.DSN,
		Dir:       cfg.Backup.Dir,
		PgDumpBin: cfg.Backup.PgDumpBin,
	})
}

// WorkerPool builds size workers named after prefix with every job handler registered.
func WorkerPool(cfg *config.Config, prefix string, size int, q worker.JobQueue, runner *report.Runner, backups *backup.Service) *worker.Pool {
	return worker.NewPool(prefix, size, q, func(w *worker.Worker) {
		w.SetPollInterval(cfg.Worker.PollInterval)
		handlers.Register(w, runner, backups)
	})
}
