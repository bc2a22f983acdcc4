package report

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"time"
)

// The section order and headers are what recipients of the email expect.
const htmlTemplate = `<h2>Monitoring Tool Results</h2>
{{- if .MissingDailyFiles}}
<h2>Check Missing Daily File</h2>
<table border='1'>
<tr><th>Folder Path</th><th>Date</th><th>File Count</th></tr>
{{- range .MissingDailyFiles}}
<tr><td>{{.Folder}}</td><td>{{date .Date}}</td><td>{{.FileCount}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .NonEmptyFolders}}
<h2>Is Folder Not Empty</h2>
<table border='1'>
<tr><th>Folder Path</th><th>File Name</th></tr>
{{- range .NonEmptyFolders}}
<tr><td>{{.Folder}}</td><td>{{.FileName}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .FileCounts}}
<h2>Check File Counts Above Threshold</h2>
<table border='1'>
<tr><th>Folder Path</th><th>Threshold</th><th>File Count</th></tr>
{{- range .FileCounts}}
<tr><td>{{.Folder}}</td><td>{{.Threshold}}</td><td>{{.Count}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .Errors}}
<h2>Check Error</h2>
<table border='1'>
<tr><th>Folder Path</th><th>File Name</th><th>Error Details</th></tr>
{{- range .Errors}}
<tr><td>{{.Folder}}</td><td>{{.File}}</td><td style="white-space: pre-wrap">{{.Detail}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .Services}}
<h2>Windows Service Status</h2>
<table border='1'>
<tr><th>Service Name</th><th>Status</th><th>Startup Type</th></tr>
{{- range .Services}}
{{- if .Error}}
<tr><td>{{.Name}}</td><td colspan='2'>Error: {{.Error}}</td></tr>
{{- else}}
<tr><td>{{.Name}}</td><td>{{.Status}}{{if .StatusMismatch}} (Expected: {{.ExpectedStatus}}){{end}}</td><td>{{.StartupType}}{{if .StartupMismatch}} (Expected: {{.ExpectedStartupType}}){{end}}</td></tr>
{{- end}}
{{- end}}
</table>
{{- end}}
`

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
}).Parse(htmlTemplate))

// HTMLFormatter renders the email body. All values are escaped.
type HTMLFormatter struct{}

// NewHTMLFormatter creates a new HTML formatter.
func NewHTMLFormatter() *HTMLFormatter {
	return &HTMLFormatter{}
}

// Name returns the format name.
func (f *HTMLFormatter) Name() string {
	return "html"
}

// Format renders the report as an HTML fragment with one table per
// non-empty section.
func (f *HTMLFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	if err := htmlReport.Execute(w, report); err != nil {
		return fmt.Errorf("rendering html report: %w", err)
	}
	return nil
}
