// Package report holds the findings of a run and renders them as HTML for
// email, colored text for a terminal, or JSON.
package report

import (
	"errors"
	"time"

	"github.com/ccollicutt/logwarden/pkg/checks"
	"github.com/ccollicutt/logwarden/pkg/scanner"
)

// Report is the complete output of one run.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Cutoff is the previous run's start time; zero means everything was scanned.
	Cutoff time.Time `json:"cutoff"`

	MissingDailyFiles []checks.MissingDailyFile  `json:"missing_daily_files,omitempty"`
	NonEmptyFolders   []checks.FolderEntry       `json:"non_empty_folders,omitempty"`
	FileCounts        []checks.FileCountExceeded `json:"file_counts,omitempty"`
	Errors            []scanner.Issue            `json:"errors,omitempty"`
	Services          []checks.ServiceMismatch   `json:"services,omitempty"`

	// Problems are entries that could not be checked. They are logged and
	// listed here but do not count as findings.
	Problems []Problem `json:"problems,omitempty"`

	// FileFaults are log files that could not be fully scanned.
	FileFaults []FileFault `json:"file_faults,omitempty"`

	Summary Summary `json:"summary"`
}

// Problem describes an entry that failed before producing a result.
type Problem struct {
	Source  string `json:"source,omitempty"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// FileFault describes a log file that was skipped or cut short.
type FileFault struct {
	Folder  string `json:"folder"`
	File    string `json:"file"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewFileFault describes a file the scanner could not fully process.
func NewFileFault(folder string, f scanner.FileReport) FileFault {
	fault := FileFault{Folder: folder, File: f.Name}
	if f.Err != nil {
		fault.Message = f.Err.Error()
	}
	var fe *scanner.FileError
	if errors.As(f.Err, &fe) {
		fault.Kind = string(fe.Kind)
		fault.Message = fe.Err.Error()
	}
	return fault
}

// Summary provides aggregate statistics.
type Summary struct {
	// ChecksRun is the number of active entries that were executed.
	ChecksRun int `json:"checks_run"`

	// ChecksSkipped is the number of inactive entries.
	ChecksSkipped int `json:"checks_skipped"`

	// ChecksFailed is the number of entries that were invalid or errored.
	ChecksFailed int `json:"checks_failed"`

	// FilesScanned is the number of log files read by error checks.
	FilesScanned int `json:"files_scanned"`

	// Findings is the total number of reported rows.
	Findings int `json:"findings"`
}

// FindingCount counts the rows of every section.
func (r *Report) FindingCount() int {
	return len(r.MissingDailyFiles) +
		len(r.NonEmptyFolders) +
		len(r.FileCounts) +
		len(r.Errors) +
		len(r.Services)
}

// HasFindings returns true if any section has a row.
func (r *Report) HasFindings() bool {
	return r.FindingCount() > 0
}

// Summarize records the finish time and fills in Summary.Findings.
func (r *Report) Summarize(finished time.Time) {
	r.FinishedAt = finished
	r.Summary.Findings = r.FindingCount()
}
