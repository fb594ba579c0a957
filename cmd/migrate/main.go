// Command migrate manages the seqbench database schema from the command
// line. The server applies pending revisions at startup when
// db.auto_migrate is set; this tool covers manual rollouts and rollbacks.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/seqbench/seqbench/internal/config"
	"github.com/seqbench/seqbench/internal/logging"
	"github.com/seqbench/seqbench/internal/migrations"
)

func main() {
	logger := logging.NewLogger()

	var configFile string

	rootCmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the seqbench database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")

	withRunner := func(run func(ctx context.Context, runner *migrations.Runner) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			connStr := fmt.Sprintf(
				"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
				cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
			)
			pool, err := pgxpool.New(ctx, connStr)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			return run(ctx, migrations.NewRunner(pool, logger))
		}
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending schema revisions",
		RunE: withRunner(func(ctx context.Context, runner *migrations.Runner) error {
			return runner.Up(ctx)
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recently applied schema revision",
		RunE: withRunner(func(ctx context.Context, runner *migrations.Runner) error {
			err := runner.Down(ctx)
			if errors.Is(err, migrations.ErrNoApplied) {
				logger.Warn("no applied revision to revert")
				return nil
			}
			return err
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show every schema revision and whether it is applied",
		RunE: withRunner(func(ctx context.Context, runner *migrations.Runner) error {
			statuses, err := runner.Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Printf("%-16s %-16s %s\n", s.ID, orBase(s.DownRevision), state)
			}
			return nil
		}),
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Printf("migrate: %v", err)
		os.Exit(1)
	}
}

func orBase(downRevision string) string {
	if downRevision == "" {
		return "(base)"
	}
	return downRevision
}
