package parser

import "context"

// LineSource provides an iterator over classified log lines.
// Implementations must be safe for sequential access (not concurrent).
type LineSource interface {
	// Next returns the next classified line.
	// Returns io.EOF when no more lines are available.
	// Every line is returned, with or without a timestamp.
	Next(ctx context.Context) (LogLine, error)

	// Close releases any resources held by the source.
	Close() error
}
