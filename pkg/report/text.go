package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ccollicutt/logwarden/pkg/checks"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions

	heading *color.Color
	bad     *color.Color
	good    *color.Color
	warn    *color.Color
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	f := &TextFormatter{
		opts:    opts,
		heading: color.New(color.FgCyan, color.Bold),
		bad:     color.New(color.FgRed),
		good:    color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{f.heading, f.bad, f.good, f.warn} {
			c.DisableColor()
		}
	}
	return f
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "LogWarden: %d checks run, %d failed, %d findings\n",
		report.Summary.ChecksRun,
		report.Summary.ChecksFailed,
		report.FindingCount())
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	f.heading.Fprintln(w, "=== LogWarden Report ===")
	if report.RunID != "" {
		fmt.Fprintf(w, "Run:    %s\n", report.RunID)
	}
	if report.Cutoff.IsZero() {
		fmt.Fprintln(w, "Cutoff: none (all files scanned)")
	} else {
		fmt.Fprintf(w, "Cutoff: %s\n", report.Cutoff.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(w)

	if len(report.MissingDailyFiles) > 0 {
		f.section(w, "Check Missing Daily File", len(report.MissingDailyFiles))
		for _, m := range report.MissingDailyFiles {
			fmt.Fprintf(w, "  - %s: no file created on %s\n", m.Folder, m.Date.Format("2006-01-02"))
		}
		fmt.Fprintln(w)
	}

	if len(report.NonEmptyFolders) > 0 {
		f.section(w, "Is Folder Not Empty", len(report.NonEmptyFolders))
		for _, e := range report.NonEmptyFolders {
			fmt.Fprintf(w, "  - %s: %s\n", e.Folder, e.FileName)
		}
		fmt.Fprintln(w)
	}

	if len(report.FileCounts) > 0 {
		f.section(w, "Check File Counts Above Threshold", len(report.FileCounts))
		for _, c := range report.FileCounts {
			fmt.Fprintf(w, "  - %s: %d files (threshold: %d)\n", c.Folder, c.Count, c.Threshold)
		}
		fmt.Fprintln(w)
	}

	if len(report.Errors) > 0 {
		f.section(w, "Check Error", len(report.Errors))
		for _, issue := range report.Errors {
			fmt.Fprintf(w, "  - %s/%s:%d\n", issue.Folder, issue.File, issue.LineNum)
			for _, line := range strings.Split(issue.Detail, "\n") {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}
		fmt.Fprintln(w)
	}

	if len(report.Services) > 0 {
		f.section(w, "Windows Service Status", len(report.Services))
		for _, s := range report.Services {
			f.formatService(w, s)
		}
		fmt.Fprintln(w)
	}

	if len(report.Problems) > 0 {
		f.warn.Fprintf(w, "Entries not checked (%d)\n", len(report.Problems))
		for _, p := range report.Problems {
			where := p.Source
			if where == "" {
				where = p.Path
			}
			fmt.Fprintf(w, "  - %s %s: %s\n", p.Method, where, p.Message)
		}
		fmt.Fprintln(w)
	}

	if f.opts.Verbose && len(report.FileFaults) > 0 {
		f.warn.Fprintf(w, "Files not fully scanned (%d)\n", len(report.FileFaults))
		for _, ff := range report.FileFaults {
			fmt.Fprintf(w, "  - %s/%s [%s]: %s\n", ff.Folder, ff.File, ff.Kind, ff.Message)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	findings := report.FindingCount()
	if findings == 0 {
		f.good.Fprintln(w, "No issues found.")
	} else {
		f.bad.Fprintf(w, "%d finding(s)\n", findings)
	}
	fmt.Fprintf(w, "Summary: %d checks run, %d skipped, %d failed\n",
		report.Summary.ChecksRun,
		report.Summary.ChecksSkipped,
		report.Summary.ChecksFailed)

	if f.opts.Verbose {
		fmt.Fprintf(w, "Files scanned: %d\n", report.Summary.FilesScanned)
		if !report.FinishedAt.IsZero() && !report.StartedAt.IsZero() {
			fmt.Fprintf(w, "Duration: %s\n", report.FinishedAt.Sub(report.StartedAt).Round(1e6))
		}
	}

	return nil
}

func (f *TextFormatter) section(w io.Writer, title string, n int) {
	f.heading.Fprintf(w, "%s (%d)\n", title, n)
}

func (f *TextFormatter) formatService(w io.Writer, s checks.ServiceMismatch) {
	if s.Error != "" {
		fmt.Fprintf(w, "  - %s: ", s.Name)
		f.bad.Fprintf(w, "error: %s\n", s.Error)
		return
	}
	fmt.Fprintf(w, "  - %s: status %s", s.Name, s.Status)
	if s.StatusMismatch {
		f.bad.Fprintf(w, " (expected %s)", s.ExpectedStatus)
	}
	fmt.Fprintf(w, ", startup %s", s.StartupType)
	if s.StartupMismatch {
		f.bad.Fprintf(w, " (expected %s)", s.ExpectedStartupType)
	}
	fmt.Fprintln(w)
}
