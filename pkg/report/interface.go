package report

import (
	"context"
	"fmt"
	"io"
)

// Formatter renders reports in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (html, text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose adds the summary counters and file faults to text output.
	Verbose bool

	// Quiet enables minimal summary-only output.
	Quiet bool

	// NoColor disables ANSI colors in text output.
	NoColor bool
}

// New returns the formatter registered under name.
func New(name string, opts FormatOptions) (Formatter, error) {
	switch name {
	case "text", "":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	case "html":
		return NewHTMLFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (must be text, json, or html)", name)
	}
}
