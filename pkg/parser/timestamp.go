package parser

import (
	"strings"
	"time"
)

const (
	// TimestampLayout is the Go layout of the fixed-width line prefix.
	TimestampLayout = "2006-01-02 15:04:05"

	// TimestampWidth is the number of leading characters inspected for a timestamp.
	TimestampWidth = len(TimestampLayout)

	// ErrorMarker is the case-sensitive token that flags an error line.
	ErrorMarker = "ERROR"
)

// Classifier derives timestamps and error markers from raw log lines.
// A Classifier is immutable and safe for concurrent use.
type Classifier struct {
	loc *time.Location
}

// NewClassifier creates a classifier that interprets line timestamps in loc.
// A nil location means time.Local.
func NewClassifier(loc *time.Location) *Classifier {
	if loc == nil {
		loc = time.Local
	}
	return &Classifier{loc: loc}
}

// Classify returns the LogLine for raw. It never fails: a short line or a
// prefix that is not a valid timestamp just yields a line without one.
func (c *Classifier) Classify(raw string) LogLine {
	line := LogLine{
		Text:    raw,
		IsError: strings.Contains(raw, ErrorMarker),
	}

	if ts, ok := c.ExtractTimestamp(raw); ok {
		line.Timestamp = ts
		line.HasTimestamp = true
	}

	return line
}

// ExtractTimestamp parses the first TimestampWidth characters of raw.
func (c *Classifier) ExtractTimestamp(raw string) (time.Time, bool) {
	if len(raw) < TimestampWidth {
		return time.Time{}, false
	}

	ts, err := time.ParseInLocation(TimestampLayout, raw[:TimestampWidth], c.loc)
	if err != nil {
		return time.Time{}, false
	}

	return ts, true
}
