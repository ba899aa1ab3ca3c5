package backup

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bagaart/TaskFlow/internal/job"
	rcron "github.com/robfig/cron/v3"
)

// Enqueuer hands scheduled work to the job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, j *job.Job) error
}

// Pruner drops finished job envelopes from the queue.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

// JobRetention is how long finished job envelopes are kept before the nightly prune.
const JobRetention = 7 * 24 * time.Hour

// Scheduler enqueues create_backup jobs on a cron schedule and prunes old job
// envelopes once a day. Expressions use the standard five cron fields.
type Scheduler struct {
	cron   *rcron.Cron
	queue  Enqueuer
	pruner Pruner

	mu      sync.Mutex
	running bool
}

func NewScheduler(queue Enqueuer, pruner Pruner) *Scheduler {
	return &Scheduler{
		cron:   rcron.New(),
		queue:  queue,
		pruner: pruner,
	}
}

// ScheduleBackups registers the backup entry. An empty expression is a no-op.
func (s *Scheduler) ScheduleBackups(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(expr, func() { s.enqueueBackup(context.Background()) }); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", expr, err)
	}
	log.Printf("[Backup] Scheduled with %q", expr)
	return nil
}

// SchedulePrune registers the daily envelope cleanup. A nil pruner is a no-op.
func (s *Scheduler) SchedulePrune() error {
	if s.pruner == nil {
		return nil
	}
	_, err := s.cron.AddFunc("@daily", func() { s.prune(context.Background()) })
	return err
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Run starts the cron loop and blocks until ctx is done, then waits for
// running entries to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Scheduler) enqueueBackup(ctx context.Context) {
	j := job.New(job.TypeCreateBackup, map[string]any{}, job.PriorityLow)
	if err := s.queue.Enqueue(ctx, j); err != nil {
		log.Printf("[Backup] Failed to enqueue scheduled backup: %v", err)
		return
	}
	log.Printf("[Backup] Enqueued scheduled backup job %s", j.ID)
}

func (s *Scheduler) prune(ctx context.Context) {
	n, err := s.pruner.Prune(ctx, time.Now().Add(-JobRetention))
	if err != nil {
		log.Printf("[Queue] Prune failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[Queue] Pruned %d finished jobs", n)
	}
}
