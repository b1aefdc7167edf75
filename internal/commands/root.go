// Package commands implements splitkassectl, the operator CLI: stateless
// settlement of YAML month files plus archive and close operations against
// the database.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"splitkasse/internal/cli"
	"splitkasse/internal/config"
	"splitkasse/internal/log"
	"splitkasse/internal/services"
	"splitkasse/internal/storage"
)

type globalFlags struct {
	dbPath   string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "splitkassectl",
		Short: "Settle and archive shared household months",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database path (default $SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newCalcCommand(),
		newChainCommand(),
		newArchiveCommand(flags),
		newHistoryCommand(flags),
		newCloseCommand(flags),
	)
	return rootCmd
}

// openService opens the configured database. Logs go to the command's
// stderr so stdout stays machine readable.
func openService(ctx context.Context, cmd *cobra.Command, flags *globalFlags) (*services.MonthService, *storage.SQLiteRepository, error) {
	cli.LoadEnvFile()
	cfg := config.Load()
	if flags.dbPath != "" {
		cfg.SQLiteDBPath = flags.dbPath
	}
	if cfg.SQLiteDBPath == "" {
		return nil, nil, fmt.Errorf("no database path configured")
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(flags.logLevel),
		Component: log.ComponentCLI,
		Output:    cmd.ErrOrStderr(),
	})

	repo, err := cli.OpenRepository(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database %s: %w", cfg.SQLiteDBPath, err)
	}
	return services.NewMonthService(repo, services.WithLogger(logger)), repo, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
