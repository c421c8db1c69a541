package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/civicconnect/portal/internal/bootstrap"
	"github.com/civicconnect/portal/internal/migrate"
	"github.com/spf13/cobra"
)

const defaultMigrationTimeout = 5 * time.Minute

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the grievance database schema",
	}

	var timeout time.Duration
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if timeout <= 0 {
				return fmt.Errorf("--timeout must be positive, got %s", timeout)
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			db, err := connectDB(cfg, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := db.Close(); closeErr != nil {
					a.logger.Warn("db close failed", "error", closeErr)
				}
			}()

			a.logger.Info("running database migrations")
			return bootstrap.RunMigrations(ctx, db, a.logger)
		},
	}
	up.Flags().DurationVar(&timeout, "timeout", defaultMigrationTimeout, "maximum time to wait for migrations")

	status := &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			db, err := connectDB(cfg, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := db.Close(); closeErr != nil {
					a.logger.Warn("db close failed", "error", closeErr)
				}
			}()

			migrations, err := migrate.Status(cmd.Context(), db)
			if err != nil {
				return err
			}
			return printMigrations(cmd, migrations)
		},
	}

	cmd.AddCommand(up, status)
	return cmd
}

func printMigrations(cmd *cobra.Command, migrations []migrate.Migration) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "VERSION\tSTATE"); err != nil {
		return err
	}
	for _, m := range migrations {
		state := "pending"
		if m.Applied {
			state = "applied"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", m.Version, state); err != nil {
			return err
		}
	}
	return tw.Flush()
}
