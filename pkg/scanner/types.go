// Package scanner finds error lines in log folders incrementally.
//
// A scan lists the files of one folder modified after a cutoff, streams each
// file line by line and reports either multi-line error blocks (ModePlain) or
// individual unsuppressed error lines (ModeExceptionFiltered).
package scanner

import (
	"time"

	"github.com/ccollicutt/logwarden/pkg/parser"
)

// Mode selects how error lines are turned into issues.
type Mode int

const (
	// ModePlain groups an error line and its continuation lines into one block.
	ModePlain Mode = iota

	// ModeExceptionFiltered reports each error line on its own unless it
	// contains a suppression substring.
	ModeExceptionFiltered
)

// String returns the mode name used in logs and reports.
func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeExceptionFiltered:
		return "exception_filtered"
	default:
		return "unknown"
	}
}

// ModeFor returns ModeExceptionFiltered when suppressions is non-empty.
func ModeFor(suppressions parser.SuppressionSet) Mode {
	if len(suppressions) > 0 {
		return ModeExceptionFiltered
	}
	return ModePlain
}

// Request describes one folder scan.
type Request struct {
	// Folder is the directory whose files are scanned (not recursive).
	Folder string

	// Cutoff excludes files not modified after it and timestamped lines before it.
	// The zero time scans everything.
	Cutoff time.Time

	// Mode selects block grouping or per-line exception filtering.
	Mode Mode

	// Suppressions is only consulted in ModeExceptionFiltered.
	Suppressions parser.SuppressionSet
}

// Issue is one discovered error: a block of lines or a single line.
type Issue struct {
	// Folder is the scanned folder as configured.
	Folder string `json:"folder"`

	// File is the base name of the log file.
	File string `json:"file"`

	// Detail is the block text (lines joined by "\n") or the single line.
	Detail string `json:"detail"`

	// LineNum is the line number of the first line in Detail.
	LineNum int `json:"line_num"`
}

// FileReport summarises how one candidate file was processed.
type FileReport struct {
	Name         string
	Path         string
	LinesRead    int
	LinesSkipped int
	Issues       int

	// LinesTruncated counts lines cut at the reader's size limit.
	LinesTruncated int

	// Err is a *FileError when the file could not be fully processed.
	Err error
}

// Result is the outcome of scanning one folder.
type Result struct {
	Folder string
	Mode   Mode

	// Issues are in file name order, then line order.
	Issues []Issue

	// Files has one entry per candidate file that was processed.
	Files []FileReport

	// Unchanged counts files skipped because they were not modified after the cutoff.
	Unchanged int
}

// HasIssues returns true if any issues were found.
func (r *Result) HasIssues() bool {
	return len(r.Issues) > 0
}

// FailedFiles returns the reports of files that hit an error.
func (r *Result) FailedFiles() []FileReport {
	var failed []FileReport
	for _, f := range r.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}
