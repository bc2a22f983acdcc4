package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/logwarden/pkg/config"
	"github.com/ccollicutt/logwarden/pkg/parser"
	"github.com/ccollicutt/logwarden/pkg/report"
	"github.com/ccollicutt/logwarden/pkg/scanner"
)

// ScanOptions holds command-line options for the scan command.
type ScanOptions struct {
	Output     string
	Since      string
	Exceptions string
	Timezone   string
	Encoding   string
	Workers    int
	Verbose    bool
	Quiet      bool
	NoColor    bool
}

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	opts := &ScanOptions{}

	cmd := &cobra.Command{
		Use:   "scan <folder>",
		Short: "Scan one log folder for errors",
		Long: `Scan the files of one folder for ERROR lines without a configuration file.

Without --exceptions each error line and its continuation lines are
reported as one block. With --exceptions every error line is reported on
its own unless it contains one of the semicolon separated substrings.

The state file is neither read nor written.

Example:
  logwarden scan /var/log/app
  logwarden scan --since 24h --exceptions '"TimeoutException";"Heartbeat"' /var/log/app
  logwarden scan -o json --workers 4 /var/log/app

Exit codes:
  0 - No errors found
  1 - Errors found
  2 - Runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json|html)")
	cmd.Flags().StringVar(&opts.Since, "since", "", "Only scan lines since a duration ago (24h) or a timestamp")
	cmd.Flags().StringVar(&opts.Exceptions, "exceptions", "", "Suppression substrings, separated by ';'")
	cmd.Flags().StringVar(&opts.Timezone, "timezone", "Local", "Time zone of log timestamps")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", config.DefaultEncoding, "Encoding of files without a byte order mark")
	cmd.Flags().IntVar(&opts.Workers, "workers", config.DefaultWorkers, "Files scanned at once")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show file faults and timing")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "Disable colored text output")

	return cmd
}

func runScan(cmd *cobra.Command, args []string, opts *ScanOptions) error {
	folder := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := setupLogging(cmd.ErrOrStderr(), config.DefaultLogLevel)
	if err != nil {
		return err
	}

	loc, err := config.ResolveLocation(opts.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	now := time.Now()
	since, err := parseSince(opts.Since, now, loc)
	if err != nil {
		return err
	}

	readerOpts, err := config.ScanConfig{Encoding: opts.Encoding}.ReaderOptions()
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

	s := scanner.New(
		scanner.WithClassifier(parser.NewClassifier(loc)),
		scanner.WithReaderOptions(readerOpts),
		scanner.WithWorkers(opts.Workers),
		scanner.WithLogger(logger),
	)

	suppressions := parser.ParseSuppressions(opts.Exceptions)
	result, err := s.Scan(ctx, scanner.Request{
		Folder:       folder,
		Cutoff:       since,
		Mode:         scanner.ModeFor(suppressions),
		Suppressions: suppressions,
	})
	if err != nil && result == nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	rep := scanReport(result, now, since)
	if ferr := formatter.Format(ctx, rep, cmd.OutOrStdout()); ferr != nil {
		return fmt.Errorf("formatting output: %w", ferr)
	}
	if err != nil {
		return fmt.Errorf("scan interrupted: %w", err)
	}

	if result.HasIssues() {
		ExitCode = 1
	}

	return nil
}

// scanReport wraps a single folder scan in a report.
func scanReport(result *scanner.Result, started, cutoff time.Time) *report.Report {
	rep := &report.Report{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Cutoff:    cutoff,
		Errors:    result.Issues,
		Summary: report.Summary{
			ChecksRun:    1,
			FilesScanned: len(result.Files),
		},
	}
	for _, f := range result.FailedFiles() {
		rep.FileFaults = append(rep.FileFaults, report.NewFileFault(result.Folder, f))
	}
	rep.Summarize(time.Now())
	return rep
}
