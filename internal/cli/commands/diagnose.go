package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/logwarden/pkg/config"
	"github.com/ccollicutt/logwarden/pkg/detector"
	"github.com/ccollicutt/logwarden/pkg/parser"
	"github.com/ccollicutt/logwarden/pkg/state"

	"github.com/spf13/cobra"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- Entry methods, parameters and folder access
- Log timestamps matching the configured time zone
- State file readability and the run lock
- Email and webhook settings (and connectivity with -v)

Example:
  logwarden diagnose config.yaml
  logwarden diagnose -v config.yaml  # verbose output, tests connectivity`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Check entries
	results = append(results, checkEntries(cfg)...)

	// 4. Check log timestamps against the time zone
	results = append(results, checkTimestamps(cfg, opts)...)

	// 5. Check state file and lock
	results = append(results, checkState(cfg))

	// 6. Check email
	results = append(results, checkEmail(cfg, opts)...)

	// 7. Check webhooks configuration
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{"Check the file path is correct"}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		switch {
		case strings.Contains(err.Error(), "yaml"):
			result.Suggests = []string{"Check YAML syntax - ensure proper indentation (use spaces, not tabs)"}
		case strings.Contains(err.Error(), "toml"):
			result.Suggests = []string{"Check TOML syntax - strings must be quoted"}
		case strings.Contains(err.Error(), "checks_file"):
			result.Suggests = []string{"checks_file is resolved relative to the config file"}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Entries: %d", len(cfg.Checks)),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	if len(cfg.Rejected) > 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d check list row(s) rejected", len(cfg.Rejected))
		for _, err := range cfg.Rejected {
			result.Details = append(result.Details, err.Error())
		}
		result.Suggests = []string{"Each row needs four columns: method,path,active,param"}
	}
	return cfg, result
}

func checkEntries(cfg *config.Config) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Checks) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Entries",
			Status:  "warning",
			Message: "No entries defined",
			Suggests: []string{
				"Add a checks_file or an inline checks section",
				"Example row: check_error,/var/log/app,Y,",
			},
		})
		return results
	}

	for i, entry := range cfg.Checks {
		label := entry.Source
		if label == "" {
			label = fmt.Sprintf("checks[%d]", i)
		}
		result := DiagnosticResult{
			Check: fmt.Sprintf("Entry %s: %s %s", label, entry.Kind(), truncate(entry.Path, 60)),
		}

		if !entry.IsActive() {
			result.Status = "ok"
			result.Message = "Inactive, skipped at run time"
			results = append(results, result)
			continue
		}

		if err := config.ValidateCheck(entry); err != nil {
			result.Status = "error"
			result.Message = err.Error()
			results = append(results, result)
			continue
		}

		if !entry.IsFolderCheck() {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Expected: %s", entry.Param)
			results = append(results, result)
			continue
		}

		info, err := os.Stat(entry.Path)
		switch {
		case os.IsNotExist(err):
			result.Status = "error"
			result.Message = "Folder does not exist"
			result.Suggests = []string{"The entry is logged and skipped until the folder exists"}
		case err != nil:
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot access folder: %v", err)
			result.Suggests = []string{"Check folder permissions"}
		case !info.IsDir():
			result.Status = "error"
			result.Message = "Path is a file, not a folder"
		default:
			files, err := os.ReadDir(entry.Path)
			if err != nil {
				result.Status = "error"
				result.Message = fmt.Sprintf("Cannot list folder: %v", err)
			} else {
				result.Status = "ok"
				result.Message = fmt.Sprintf("Folder exists (%d entries)", len(files))
			}
		}
		results = append(results, result)
	}

	return results
}

func checkTimestamps(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}
	classifier := parser.NewClassifier(cfg.Location())
	readerOpts, err := cfg.Scan.ReaderOptions()
	if err != nil {
		readerOpts = parser.ReaderOptions{}
	}

	for _, entry := range cfg.Checks {
		if entry.Kind() != config.MethodCheckError || !entry.IsActive() {
			continue
		}

		logFile, err := newestFile(entry.Path)
		if err != nil || logFile == "" {
			continue
		}

		testResult := DiagnosticResult{
			Check: fmt.Sprintf("Timestamp Test: %s", filepath.Base(logFile)),
		}

		lines, err := headLines(logFile, 10, readerOpts)
		if err != nil {
			testResult.Status = "warning"
			testResult.Message = fmt.Sprintf("Cannot read file: %v", err)
			results = append(results, testResult)
			continue
		}

		matchCount, future := 0, 0
		var sampleMatch, sampleFail string
		now := time.Now()
		for _, line := range lines {
			if line == "" {
				continue
			}
			l := classifier.Classify(line)
			if !l.HasTimestamp {
				if sampleFail == "" {
					sampleFail = line
				}
				continue
			}
			matchCount++
			if l.Timestamp.After(now.Add(time.Hour)) {
				future++
			}
			if sampleMatch == "" {
				sampleMatch = line
			}
		}

		switch {
		case matchCount == 0:
			testResult.Status = "warning"
			testResult.Message = "No sampled line starts with a yyyy-MM-dd HH:mm:ss timestamp"
			testResult.Suggests = []string{
				"Lines without a timestamp are never filtered by the last run time",
				"Every ERROR line will be reported on each run",
			}
			if sampleFail != "" {
				testResult.Details = []string{"Sample line:", truncate(sampleFail, 80)}
			}
			if best := detector.New().DetectLines(lines).Best(); best != nil {
				testResult.Details = append(testResult.Details,
					fmt.Sprintf("Lines look like %s timestamps (e.g. %s)", best.Format.Name, best.Format.Example))
			}
		case future > 0:
			testResult.Status = "warning"
			testResult.Message = fmt.Sprintf("%d timestamp(s) are in the future in %s", future, cfg.Location())
			testResult.Suggests = []string{"Set timezone to the zone the application logs in"}
		default:
			testResult.Status = "ok"
			testResult.Message = fmt.Sprintf("Timestamps found on %d/%d sample lines", matchCount, len(lines))
			if opts.Verbose && sampleMatch != "" {
				testResult.Details = []string{"Sample match:", truncate(sampleMatch, 80)}
			}
		}

		results = append(results, testResult)
		break // Only test the first error folder with files
	}

	return results
}

// newestFile returns the most recently modified regular file in folder.
func newestFile(folder string) (string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", err
	}
	type candidate struct {
		path string
		mod  time.Time
	}
	var files []candidate
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{filepath.Join(folder, e.Name()), info.ModTime()})
	}
	if len(files) == 0 {
		return "", nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })
	return files[0].path, nil
}

func headLines(path string, n int, opts parser.ReaderOptions) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- configured log folders are expected
	if err != nil {
		return nil, err
	}
	reader := parser.NewLineReader(f, path, parser.NewClassifier(nil), opts)
	defer reader.Close()

	var lines []string
	for len(lines) < n {
		line, err := reader.Next(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, line.Text)
	}
	return lines, nil
}

func checkState(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("State File: %s", cfg.StateFile),
	}

	store := state.New(cfg.StateFile, state.WithLocation(cfg.Location()))
	lock, err := store.Lock()
	if errors.Is(err, state.ErrLocked) {
		result.Status = "warning"
		result.Message = "Another run is in progress"
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot create lock file: %v", err)
		result.Suggests = []string{"Check that the state file directory is writable"}
		return result
	}
	defer lock.Unlock()

	last, err := store.ReadLastRun()
	switch {
	case errors.Is(err, state.ErrNotFound):
		result.Status = "ok"
		result.Message = "No previous run recorded, the first run scans all files"
	case err != nil:
		result.Status = "warning"
		result.Message = fmt.Sprintf("Unreadable: %v", err)
		result.Suggests = []string{"The next run scans all files and rewrites the state file"}
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("Last run: %s", last.Format(state.TimeLayout))
	}
	return result
}

func checkEmail(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	e := cfg.Email
	if e == nil {
		return []DiagnosticResult{{
			Check:   "Email",
			Status:  "warning",
			Message: "No email configured, findings are only logged",
		}}
	}

	addr := net.JoinHostPort(e.SMTPServer, strconv.Itoa(e.SMTPPort))
	result := DiagnosticResult{
		Check:   "Email",
		Status:  "ok",
		Message: fmt.Sprintf("%s via %s (%s)", strings.Join(e.To, ", "), addr, e.Security),
	}
	if strings.HasPrefix(e.Password, "$") {
		result.Status = "warning"
		result.Details = []string{fmt.Sprintf("Password appears to be an unresolved env var: %s", e.Password)}
	}
	results := []DiagnosticResult{result}

	if opts.Verbose {
		conn := DiagnosticResult{Check: "SMTP Connectivity"}
		c, err := net.DialTimeout("tcp", addr, 5*time.Second)
		if err != nil {
			conn.Status = "warning"
			conn.Message = fmt.Sprintf("Cannot connect: %v", err)
			conn.Suggests = []string{"Check smtp_server, smtp_port and firewall rules"}
		} else {
			c.Close()
			conn.Status = "ok"
			conn.Message = fmt.Sprintf("Reachable: %s", addr)
		}
		results = append(results, conn)
	}
	return results
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== LogWarden Configuration Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before the next run.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		issues := []string{}
		warnings := []string{}

		// Check URL
		if wh.URL == "" {
			issues = append(issues, "Missing url")
		} else {
			u, err := url.Parse(wh.URL)
			if err != nil {
				issues = append(issues, fmt.Sprintf("Invalid URL: %v", err))
			} else if u.Scheme != "http" && u.Scheme != "https" {
				issues = append(issues, fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme))
			} else if u.Host == "" {
				issues = append(issues, "URL must have a host")
			}
		}

		// Check trigger
		if wh.Trigger != "" {
			switch wh.Trigger {
			case config.WebhookTriggerOnIssues, config.WebhookTriggerAlways, config.WebhookTriggerNever:
				// Valid
			default:
				issues = append(issues, fmt.Sprintf("Invalid trigger %q (use on_issues, always, or never)", wh.Trigger))
			}
		}

		// Check if token looks like an unexpanded env var
		if strings.HasPrefix(wh.Token, "$") {
			warnings = append(warnings, fmt.Sprintf("Token appears to be an unresolved env var: %s", wh.Token))
		}

		if len(issues) > 0 {
			result.Status = "error"
			result.Message = fmt.Sprintf("%d configuration issue(s)", len(issues))
			result.Details = issues
		} else if len(warnings) > 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", wh.URL),
					fmt.Sprintf("Timeout: %s", wh.Timeout),
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			if wh.URL == "" {
				continue
			}

			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
