package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bagaart/TaskFlow/internal/access"
	"github.com/bagaart/TaskFlow/internal/api"
	"github.com/bagaart/TaskFlow/internal/app"
	"github.com/bagaart/TaskFlow/internal/auth"
	"github.com/bagaart/TaskFlow/internal/config"
	"github.com/bagaart/TaskFlow/internal/dashboard"
	"github.com/bagaart/TaskFlow/internal/queue"
	"github.com/bagaart/TaskFlow/internal/report"
	"github.com/bagaart/TaskFlow/internal/repository"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
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
			log.Printf("failed to close server queue: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	guard := access.NewGuard(store)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	backups := app.Backups(cfg)

	apiHandler := api.NewAPI(api.Deps{
		Store:     store,
		Guard:     guard,
		Auth:      auth.NewService(store, tokens),
		Tokens:    tokens,
		Reports:   report.NewService(store, guard, q),
		Dashboard: dashboard.NewDashboard(q, store, guard),
		Backups:   backups,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		startMetricsCollector(ctx, q, store)
	}()

	if n := cfg.Server.EmbeddedWorkers; n > 0 {
		runner := app.Runner(cfg, store, app.WorkerID(cfg))
		pool := app.WorkerPool(cfg, "embedded", n, q, runner, backups)
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Run(ctx)
		}()
		log.Printf("Started %d embedded workers", n)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           apiHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("failed to shut down server: %v", err)
		}
	}()

	log.Printf("Server starting on :%s", cfg.Server.Port)
	log.Printf("Connected to Redis at %s", cfg.Redis.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server error: %v", err)
		stop()
	}

	wg.Wait()
}
