// Package worker provides the background job processor that consumes and executes jobs from the queue.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bagaart/TaskFlow/internal/job"
	"github.com/bagaart/TaskFlow/internal/metrics"
)

const DefaultPollInterval = time.Second

type JobHandler func(ctx context.Context, j *job.Job) error

// JobQueue is the part of queue.Queue the worker needs.
type JobQueue interface {
	Enqueue(ctx context.Context, j *job.Job) error
	Dequeue(ctx context.Context) (*job.Job, error)
	UpdateJob(ctx context.Context, j *job.Job) error
}

type Worker struct {
	id           string
	queue        JobQueue
	handlers     map[string]JobHandler
	pollInterval time.Duration
}

func NewWorker(id string, q JobQueue) *Worker {
	return &Worker{
		id:           id,
		queue:        q,
		handlers:     make(map[string]JobHandler),
		pollInterval: DefaultPollInterval,
	}
}

func (w *Worker) ID() string {
	return w.id
}

func (w *Worker) RegisterHandler(jobType string, handler JobHandler) {
	w.handlers[jobType] = handler
}

func (w *Worker) SetPollInterval(d time.Duration) {
	if d > 0 {
		w.pollInterval = d
	}
}

// Start polls the queue until ctx is cancelled. A running job sees the
// cancellation through its own context.
func (w *Worker) Start(ctx context.Context) {
	log.Printf("Worker %s started", w.id)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %s stopped", w.id)
			return
		default:
		}

		j, err := w.queue.Dequeue(ctx)
		if err != nil && ctx.Err() == nil {
			log.Printf("Worker %s failed to dequeue: %v", w.id, err)
		}
		if err != nil || j == nil {
			select {
			case <-ctx.Done():
			case <-time.After(w.pollInterval):
			}
			continue
		}

		w.processJob(ctx, j)
	}
}

func (w *Worker) processJob(ctx context.Context, j *job.Job) {
	log.Printf("Worker %s processing job %s (type: %s)", w.id, j.ID, j.Type)

	now := time.Now()
	metrics.RecordJobWaitTime(j.Type, j.Priority, now.Sub(j.ScheduledAt))

	j.Status = job.StatusRunning
	j.StartedAt = &now
	j.WorkerID = w.id
	if err := w.queue.UpdateJob(ctx, j); err != nil {
		log.Printf("Failed to update job status to running: %v", err)
	}

	// Bookkeeping after the handler must land even if shutdown started meanwhile.
	bookkeeping := context.WithoutCancel(ctx)

	handler, exists := w.handlers[j.Type]
	if !exists {
		completedAt := time.Now()
		j.CompletedAt = &completedAt
		j.Status = job.StatusFailed
		j.Error = fmt.Sprintf("no handler for job type: %s", j.Type)
		if err := w.queue.UpdateJob(bookkeeping, j); err != nil {
			log.Printf("Failed to update job: %v", err)
		}
		metrics.RecordJobFailed(j.Type, 0)
		return
	}

	err := w.run(ctx, handler, j)
	completedAt := time.Now()
	j.CompletedAt = &completedAt
	duration := completedAt.Sub(now)

	if err != nil {
		if j.CanRetry() {
			j.RetryCount++
			j.Status = job.StatusPending
			j.CompletedAt = nil
			j.ScheduledAt = time.Now().Add(time.Duration(j.RetryCount) * 10 * time.Second)
			if err := w.queue.Enqueue(bookkeeping, j); err != nil {
				log.Printf("Failed to re-enqueue job: %v", err)
			}
			log.Printf("Job %s failed, will retry (%d/%d)", j.ID, j.RetryCount, j.MaxRetries)
			return
		}

		j.Status = job.StatusFailed
		j.Error = err.Error()
		if err := w.queue.UpdateJob(bookkeeping, j); err != nil {
			log.Printf("Failed to update failed job: %v", err)
		}
		metrics.RecordJobFailed(j.Type, duration)
		log.Printf("Job %s failed permanently: %v", j.ID, err)
		return
	}

	j.Status = job.StatusCompleted
	if err := w.queue.UpdateJob(bookkeeping, j); err != nil {
		log.Printf("Failed to update completed job: %v", err)
	}
	metrics.RecordJobCompleted(j.Type, duration)
	log.Printf("Job %s completed successfully", j.ID)
}

// run converts a handler panic into a job error so one bad job cannot stop the worker.
func (w *Worker) run(ctx context.Context, handler JobHandler, j *job.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, j)
}

// Pool runs several workers that share handlers and the queue.
type Pool struct {
	workers []*Worker
}

// NewPool creates size workers named "{prefix}-{n}". configure is applied to each
// of them, typically to register handlers.
func NewPool(prefix string, size int, q JobQueue, configure func(*Worker)) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{workers: make([]*Worker, 0, size)}
	for i := 1; i <= size; i++ {
		w := NewWorker(fmt.Sprintf("%s-%d", prefix, i), q)
		if configure != nil {
			configure(w)
		}
		p.workers = append(p.workers, w)
	}
	return p
}

func (p *Pool) Size() int {
	return len(p.workers)
}

// Run starts every worker and blocks until all of them have stopped.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	metrics.UpdateActiveWorkers(len(p.workers))
	defer metrics.UpdateActiveWorkers(0)

	for _, w := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Start(ctx)
		}(w)
	}
	wg.Wait()
}
