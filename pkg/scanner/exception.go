package scanner

import "github.com/ccollicutt/logwarden/pkg/parser"

// ExceptionFilter reports every error line that contains none of the
// suppression substrings. It keeps no state between lines.
type ExceptionFilter struct {
	out          *Collector
	suppressions parser.SuppressionSet
}

var _ LineProcessor = (*ExceptionFilter)(nil)

// NewExceptionFilter creates a filter that emits into out.
func NewExceptionFilter(out *Collector, suppressions parser.SuppressionSet) *ExceptionFilter {
	return &ExceptionFilter{out: out, suppressions: suppressions}
}

// Process emits line if it is an unsuppressed error line.
func (f *ExceptionFilter) Process(line parser.LogLine) {
	if !line.IsError || f.suppressions.Suppresses(line.Text) {
		return
	}
	f.out.add(line.Text, line.LineNum)
}

// Finalize is a no-op; nothing is buffered.
func (f *ExceptionFilter) Finalize() {}
