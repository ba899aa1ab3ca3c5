package main

import (
	"errors"
	"fmt"

	"github.com/bagaart/TaskFlow/internal/app"
	"github.com/bagaart/TaskFlow/internal/auth"
	"github.com/bagaart/TaskFlow/internal/config"
	"github.com/bagaart/TaskFlow/internal/models"
	"github.com/bagaart/TaskFlow/internal/report"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(cfg *config.Config, store adminStore) error {
				if err := store.Migrate(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				return nil
			})
		},
	}
}

func createAdminCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:     "create-admin",
		Short:   "Create a user with administrator rights",
		Example: `  taskflowctl create-admin --name "Site Admin" --email admin@example.com --password s3cret-pass`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(cfg *config.Config, store adminStore) error {
				svc := auth.NewService(store, auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))
				u, err := svc.CreateAdmin(cmd.Context(), name, email, password)
				if err != nil {
					var verr *auth.ValidationError
					if errors.As(err, &verr) {
						return fmt.Errorf("invalid admin: %w", err)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (id %d)\n", u.Email, u.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 8 characters")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Dump the database with pg_dump into the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.RequireDSN(); err != nil {
				return err
			}
			path, err := app.Backups(cfg).Create(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func reportCmd() *cobra.Command {
	var format string
	var charts bool

	cmd := &cobra.Command{
		Use:   "report [tasks|projects|users]",
		Short: "Generate a report synchronously and print the artifact path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := report.Request{
				Type:       args[0],
				Format:     format,
				Parameters: map[string]any{"include_charts": charts},
			}
			if err := req.Validate(); err != nil {
				return err
			}

			return withStore(cmd.Context(), func(cfg *config.Config, store adminStore) error {
				rep := &models.Report{
					Type:       models.ReportType(req.Type),
					Format:     models.ReportFormat(req.Format),
					Parameters: req.Parameters,
				}
				if err := store.CreateReport(cmd.Context(), rep); err != nil {
					return err
				}

				runner := app.Runner(cfg, store, "taskflowctl")
				if err := runner.Run(cmd.Context(), rep.ID); err != nil {
					return fmt.Errorf("report %d failed: %w", rep.ID, err)
				}

				done, err := store.GetReport(cmd.Context(), rep.ID)
				if err != nil {
					return err
				}
				if done.Status != models.ReportCompleted || done.FilePath == nil {
					return fmt.Errorf("report %d finished with status %s", rep.ID, done.Status)
				}
				fmt.Fprintln(cmd.OutOrStdout(), *done.FilePath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, pdf)")
	cmd.Flags().BoolVar(&charts, "charts", false, "embed charts in PDF reports")

	return cmd
}
