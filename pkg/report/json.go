package report

import (
	"context"
	"encoding/json"
	"io"
)

// JSONFormatter writes the report as indented JSON, the same document the
// webhooks receive.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// quietReport is the Quiet rendering: enough to tell runs apart.
type quietReport struct {
	RunID    string  `json:"run_id"`
	Findings bool    `json:"has_findings"`
	Summary  Summary `json:"summary"`
}

// Format renders the report as JSON.
func (f *JSONFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	var doc any = report
	if f.opts.Quiet {
		doc = quietReport{RunID: report.RunID, Findings: report.HasFindings(), Summary: report.Summary}
	}
	return enc.Encode(doc)
}
