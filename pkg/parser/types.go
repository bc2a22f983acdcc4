// Package parser provides log line classification and file reading.
package parser

import "time"

// LogLine is a single raw log line with the metadata derived from it.
type LogLine struct {
	// Text is the original line content, without the line terminator.
	Text string

	// Timestamp is the leading timestamp. Only meaningful when HasTimestamp is set.
	Timestamp time.Time

	// HasTimestamp reports whether the line starts with a parseable timestamp.
	HasTimestamp bool

	// IsError reports whether the line contains the ERROR marker.
	IsError bool

	// Truncated reports whether the line was cut at the reader's size limit.
	Truncated bool

	// LineNum is the 1-based line number in the source file (0 if unknown).
	LineNum int
}

// Before reports whether the line carries a timestamp strictly earlier than t.
// Lines without a timestamp are never before anything.
func (l LogLine) Before(t time.Time) bool {
	return l.HasTimestamp && l.Timestamp.Before(t)
}
