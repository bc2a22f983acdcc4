package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logwarden/internal/logging"
	"github.com/ccollicutt/logwarden/pkg/config"
	"github.com/ccollicutt/logwarden/pkg/monitor"
	"github.com/ccollicutt/logwarden/pkg/report"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// LogLevel is the --log-level persistent flag. Empty means the config value.
var LogLevel string

// RunOptions holds command-line options for the run command.
type RunOptions struct {
	Output  string
	Since   string
	DryRun  bool
	NoState bool
	Verbose bool
	Quiet   bool
	NoColor bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <config-file>",
		Short: "Run every configured check once",
		Long: `Run every active check in the configuration once and deliver the report.

Checks:
  - check_missing_daily_file           no file created today by a deadline
  - is_folder_not_empty                files left in a folder that should be empty
  - check_file_counts_above_threshold  too many files in a folder
  - check_error                        ERROR lines in logs written since the last run
  - services                           Windows service status and startup type

When anything is found the HTML report is emailed. Webhooks fire according
to their trigger. The start time is written to the state file so the next
run only scans newer log lines.

Exit codes:
  0 - No findings
  1 - Findings reported
  2 - Configuration or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Report written to stdout (text|json|html)")
	cmd.Flags().StringVar(&opts.Since, "since", "", "Scan logs since a duration ago (24h) or a timestamp, ignoring the state file")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Do not send email or webhooks and do not update the state file")
	cmd.Flags().BoolVar(&opts.NoState, "no-state", false, "Do not update the state file")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show file faults and timing")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "Disable colored text output")

	return cmd
}

func runMonitor(cmd *cobra.Command, args []string, opts *RunOptions) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := setupLogging(cmd.ErrOrStderr(), cfg.Logging.Level)
	if err != nil {
		return err
	}

	since, err := parseSince(opts.Since, time.Now(), cfg.Location())
	if err != nil {
		return err
	}

	formatter, err := createFormatter(opts.Output, report.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
		NoColor: opts.NoColor,
	})
	if err != nil {
		return err
	}

	m, err := monitor.New(cfg, monitor.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating monitor: %w", err)
	}

	rep, runErr := m.Run(ctx, monitor.RunOptions{
		DryRun:  opts.DryRun,
		NoState: opts.NoState,
		Since:   since,
	})
	if rep == nil {
		return runErr
	}

	if err := formatter.Format(ctx, rep, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	if rep.HasFindings() {
		ExitCode = 1
	}

	return nil
}

// setupLogging installs the process logger. The --log-level flag wins over
// the configured level.
func setupLogging(w io.Writer, configured string) (*slog.Logger, error) {
	level := LogLevel
	if level == "" {
		level = configured
	}
	logger, err := logging.Init(w, level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return logger, nil
}

func createFormatter(name string, opts report.FormatOptions) (report.Formatter, error) {
	return report.New(strings.ToLower(name), opts)
}

var sinceLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseSince accepts a duration back from now ("24h") or a timestamp read in
// loc. RFC 3339 timestamps carry their own offset. Empty means no override.
func parseSince(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("invalid since %q: duration must be positive", s)
		}
		return now.Add(-d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range sinceLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid since %q (use a duration like 24h or a timestamp like 2006-01-02 15:04:05)", s)
}
