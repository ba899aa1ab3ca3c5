package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bagaart/TaskFlow/internal/config"
	"github.com/bagaart/TaskFlow/internal/repository"
	"github.com/spf13/cobra"
)

var Version = "dev"

// adminStore is the store surface the CLI needs, schema management included.
type adminStore interface {
	repository.Store
	Migrate(ctx context.Context) error
}

var openStore = func(dsn string) (adminStore, error) {
	return repository.NewPostgresStore(dsn)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "taskflowctl",
		Short:         "TaskFlow administration commands",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(reportCmd())

	return rootCmd
}

// withStore loads configuration, opens the store and closes it after fn.
func withStore(ctx context.Context, fn func(cfg *config.Config, store adminStore) error) error {
	cfg := config.Load()
	if err := cfg.RequireDSN(); err != nil {
		return err
	}

	store, err := openStore(cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	return fn(cfg, store)
}
