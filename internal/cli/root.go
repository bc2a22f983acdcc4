// Package cli provides the command-line interface for LogWarden.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logwarden/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logwarden",
		Short: "Watch log folders and services, mail what went wrong",
		Long: `LogWarden is a scheduled monitoring job for file drops, log folders and
Windows services.

Each run it reports:
  - Folders that received no file today
  - Folders that should be empty but are not
  - Folders holding more files than allowed
  - ERROR lines written to log files since the previous run
  - Services whose status or startup type drifted

Findings are mailed as one HTML report and optionally posted to webhooks.
Schedule 'logwarden run' with cron or the Windows Task Scheduler.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&commands.LogLevel, "log-level", "", "Log level (debug|info|warn|error), overrides the config")

	// Add subcommands
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewScanCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
