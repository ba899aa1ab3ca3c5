package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bagaart/TaskFlow/internal/app"
	"github.com/bagaart/TaskFlow/internal/backup"
	"github.com/bagaart/TaskFlow/internal/config"
	"github.com/bagaart/TaskFlow/internal/queue"
	"github.com/bagaart/TaskFlow/internal/repository"
)

func main() {
	cfg := config.Load()
	if err := cfg.RequireDSN(); err != nil {
		log.Fatal(err)
	}

	store, err := repository.NewPostgresStore(cfg.Postgres.DSN)
	if err != nil {
		log.Fatal(err)
	}

	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("failed to close Postgres store: %v", err)
		}
	}()

	q, err := queue.NewQueue(cfg.Redis.Addr)
	if err != nil {
		log.Fatal(err)
	}

	defer func() {
		if err := q.Close(); err != nil {
			log.Printf("failed to close worker queue: %v", err)
		}
	}()

	scheduler := backup.NewScheduler(q, q)
	if err := scheduler.ScheduleBackups(cfg.Backup.Schedule); err != nil {
		log.Fatal(err)
	}
	if err := scheduler.SchedulePrune(); err != nil {
		log.Fatal(err)
	}

	workerID := app.WorkerID(cfg)
	runner := app.Runner(cfg, store, workerID)
	pool := app.WorkerPool(cfg, workerID, cfg.Worker.Concurrency, q, runner, app.Backups(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		pool.Run(ctx)
	}()

	log.Printf("Worker %s started with %d workers", workerID, pool.Size())
	<-ctx.Done()
	log.Println("Shutting down worker...")
	wg.Wait()
}
