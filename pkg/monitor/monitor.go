// Package monitor runs every configured check once and delivers the
// combined report.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ccollicutt/logwarden/pkg/checks"
	"github.com/ccollicutt/logwarden/pkg/config"
	"github.com/ccollicutt/logwarden/pkg/mail"
	"github.com/ccollicutt/logwarden/pkg/parser"
	"github.com/ccollicutt/logwarden/pkg/report"
	"github.com/ccollicutt/logwarden/pkg/scanner"
	"github.com/ccollicutt/logwarden/pkg/state"
	"github.com/ccollicutt/logwarden/pkg/webhook"
)

// Mailer sends the rendered report.
type Mailer interface {
	Send(ctx context.Context, m mail.Message) error
}

// Notifier posts the report to webhook targets.
type Notifier interface {
	Notify(ctx context.Context, rep *report.Report, targets []webhook.Target, logger *slog.Logger) map[string]*webhook.Response
}

// Monitor executes the entries of one configuration.
type Monitor struct {
	cfg      *config.Config
	checker  *checks.Checker
	scanner  *scanner.Scanner
	mailer   Mailer
	notifier Notifier
	store    *state.Store
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// WithChecker replaces the folder and service checker.
func WithChecker(c *checks.Checker) Option {
	return func(m *Monitor) {
		m.checker = c
	}
}

// WithScanner replaces the error log scanner.
func WithScanner(s *scanner.Scanner) Option {
	return func(m *Monitor) {
		m.scanner = s
	}
}

// WithMailer replaces the SMTP sender built from the email settings.
func WithMailer(mailer Mailer) Option {
	return func(m *Monitor) {
		m.mailer = mailer
	}
}

// WithNotifier replaces the webhook client.
func WithNotifier(n Notifier) Option {
	return func(m *Monitor) {
		m.notifier = n
	}
}

// WithStore replaces the state store built from state_file.
func WithStore(s *state.Store) Option {
	return func(m *Monitor) {
		m.store = s
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// WithRunID overrides how run IDs are generated (default: random UUID).
func WithRunID(newID func() string) Option {
	return func(m *Monitor) {
		m.newID = newID
	}
}

// New creates a Monitor for cfg. Components not supplied as options are
// built from the configuration.
func New(cfg *config.Config, opts ...Option) (*Monitor, error) {
	m := &Monitor{
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}

	if m.checker == nil {
		m.checker = checks.New(checks.WithClock(m.now), checks.WithLogger(m.logger))
	}
	if m.scanner == nil {
		readerOpts, err := cfg.Scan.ReaderOptions()
		if err != nil {
			return nil, fmt.Errorf("scan settings: %w", err)
		}
		m.scanner = scanner.New(
			scanner.WithClassifier(parser.NewClassifier(cfg.Location())),
			scanner.WithReaderOptions(readerOpts),
			scanner.WithWorkers(cfg.Scan.Workers),
			scanner.WithLogger(m.logger),
		)
	}
	if m.store == nil {
		path := cfg.StateFile
		if path == "" {
			path = config.DefaultStateFile
		}
		m.store = state.New(path, state.WithLocation(cfg.Location()))
	}
	if m.mailer == nil && cfg.Email != nil {
		m.mailer = newSMTPSender(cfg.Email, m.logger)
	}
	if m.notifier == nil {
		m.notifier = webhook.NewClient()
	}

	return m, nil
}

func newSMTPSender(e *config.EmailConfig, logger *slog.Logger) *mail.Sender {
	transport := mail.NewSMTPTransport(mail.SMTPConfig{
		Host:     e.SMTPServer,
		Port:     e.SMTPPort,
		Username: e.Username,
		Password: e.Password,
		Security: mail.Security(e.Security),
	})
	return mail.NewSender(transport,
		mail.WithRetries(e.Retries),
		mail.WithRetryDelay(e.RetryDelay.Std()),
		mail.WithLogger(logger),
	)
}

// RunOptions controls one run.
type RunOptions struct {
	// DryRun sends nothing and leaves the state file untouched.
	DryRun bool

	// NoState leaves the state file untouched but still delivers the report.
	NoState bool

	// Since replaces the cutoff read from the state file when non-zero.
	Since time.Time
}

// Run executes every entry once and returns the report.
//
// Only failures that stop the run as a whole are returned: the run lock is
// held elsewhere, the context was cancelled, or the state file could not
// be written. Bad entries, failed checks and delivery errors are logged and
// recorded in the report.
func (m *Monitor) Run(ctx context.Context, opts RunOptions) (*report.Report, error) {
	lock, err := m.store.Lock()
	if err != nil {
		return nil, fmt.Errorf("acquiring run lock: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("failed to release run lock", "error", err)
		}
	}()

	lastRun, err := m.store.ReadLastRun()
	if err != nil {
		m.logger.Warn("could not read last run time, scanning all files",
			"state_file", m.store.Path(), "error", err)
	}

	cutoff := lastRun
	if !opts.Since.IsZero() {
		cutoff = opts.Since
	}

	rep := &report.Report{
		RunID:     m.newID(),
		StartedAt: m.now(),
		Cutoff:    cutoff,
	}
	logger := m.logger.With("run_id", rep.RunID)
	logger.Info("run started", "cutoff", cutoff, "entries", len(m.cfg.Checks), "dry_run", opts.DryRun)

	for _, rejected := range m.cfg.Rejected {
		logger.Error("invalid config entry, skipping", "error", rejected)
		rep.Problems = append(rep.Problems, report.Problem{Source: rowSource(rejected), Message: rejected.Error()})
		rep.Summary.ChecksFailed++
	}

	r := &run{Monitor: m, logger: logger, report: rep, lastRun: lastRun, cutoff: cutoff}
	for _, entry := range m.cfg.Checks {
		if ctx.Err() != nil {
			break
		}
		r.entry(ctx, entry)
	}

	rep.Summarize(m.now())
	logger.Info("run finished",
		"findings", rep.Summary.Findings,
		"checks_run", rep.Summary.ChecksRun,
		"checks_failed", rep.Summary.ChecksFailed,
		"duration", rep.FinishedAt.Sub(rep.StartedAt))

	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("run interrupted: %w", err)
	}

	if opts.DryRun {
		logger.Info("dry run, nothing sent and state not updated")
		return rep, nil
	}

	r.deliver(ctx)

	if opts.NoState {
		return rep, nil
	}
	if err := m.store.WriteLastRun(rep.StartedAt); err != nil {
		logger.Error("failed to write state file", "state_file", m.store.Path(), "error", err)
		return rep, fmt.Errorf("writing state file: %w", err)
	}
	return rep, nil
}

func rowSource(err error) string {
	var row *config.RowError
	if errors.As(err, &row) {
		return fmt.Sprintf("%s:%d", row.Source, row.Line)
	}
	return ""
}

// run is the state of one Run call.
type run struct {
	*Monitor
	logger  *slog.Logger
	report  *report.Report
	lastRun time.Time
	cutoff  time.Time
}

// entry runs one check. It never panics and never returns an error: every
// failure becomes a logged Problem.
func (r *run) entry(ctx context.Context, entry config.CheckConfig) {
	logger := r.logger.With("method", string(entry.Kind()), "path", entry.Path)
	if entry.Source != "" {
		logger = logger.With("source", entry.Source)
	}

	if !entry.IsActive() {
		logger.Info("entry is not active, skipping")
		r.report.Summary.ChecksSkipped++
		return
	}

	if err := config.ValidateCheck(entry); err != nil {
		r.fail(logger, entry, err)
		return
	}

	r.report.Summary.ChecksRun++
	defer func() {
		if v := recover(); v != nil {
			r.fail(logger, entry, fmt.Errorf("check panicked: %v", v))
		}
	}()

	if err := r.dispatch(ctx, logger, entry); err != nil {
		r.fail(logger, entry, err)
	}
}

func (r *run) fail(logger *slog.Logger, entry config.CheckConfig, err error) {
	if missingFolder(err) {
		logger.Error("folder does not exist", "error", err)
	} else {
		logger.Error("check failed", "error", err)
	}
	r.report.Summary.ChecksFailed++
	r.report.Problems = append(r.report.Problems, report.Problem{
		Source:  entry.Source,
		Method:  string(entry.Kind()),
		Path:    entry.Path,
		Message: err.Error(),
	})
}

func missingFolder(err error) bool {
	return errors.Is(err, scanner.ErrFolderNotFound) || errors.Is(err, checks.ErrFolderNotFound)
}

func (r *run) dispatch(ctx context.Context, logger *slog.Logger, entry config.CheckConfig) error {
	logger.Info("running check")
	rep := r.report

	switch entry.Kind() {
	case config.MethodMissingDailyFile:
		deadline, err := entry.Deadline()
		if err != nil {
			return err
		}
		missing, err := r.checker.MissingDailyFile(entry.Path, deadline, r.lastRun)
		if err != nil {
			return err
		}
		if missing != nil {
			rep.MissingDailyFiles = append(rep.MissingDailyFiles, *missing)
		}

	case config.MethodFolderNotEmpty:
		files, err := r.checker.FolderNotEmpty(entry.Path)
		if err != nil {
			return err
		}
		rep.NonEmptyFolders = append(rep.NonEmptyFolders, files...)

	case config.MethodFileCountThreshold:
		limit, err := entry.Threshold()
		if err != nil {
			return err
		}
		exceeded, err := r.checker.FileCountAboveThreshold(entry.Path, limit)
		if err != nil {
			return err
		}
		if exceeded != nil {
			rep.FileCounts = append(rep.FileCounts, *exceeded)
		}

	case config.MethodCheckError:
		return r.scan(ctx, entry)

	case config.MethodServices:
		if mismatch := r.checker.Service(ctx, entry.Path, entry.Param); mismatch != nil {
			rep.Services = append(rep.Services, *mismatch)
		}

	default:
		return fmt.Errorf("unknown method %q", entry.Method)
	}
	return nil
}

func (r *run) scan(ctx context.Context, entry config.CheckConfig) error {
	suppressions := parser.ParseSuppressions(entry.Param)
	result, err := r.scanner.Scan(ctx, scanner.Request{
		Folder:       entry.Path,
		Cutoff:       r.cutoff,
		Mode:         scanner.ModeFor(suppressions),
		Suppressions: suppressions,
	})
	if result != nil {
		r.report.Errors = append(r.report.Errors, result.Issues...)
		r.report.Summary.FilesScanned += len(result.Files)
		for _, f := range result.FailedFiles() {
			r.report.FileFaults = append(r.report.FileFaults, report.NewFileFault(result.Folder, f))
		}
	}
	return err
}

// deliver mails the report when there are findings and notifies webhooks.
// Failures are logged only.
func (r *run) deliver(ctx context.Context) {
	rep := r.report

	switch {
	case !rep.HasFindings():
		r.logger.Info("no findings, report not sent")
	case r.mailer == nil || r.cfg.Email == nil:
		r.logger.Info("email not configured, report not sent")
	default:
		r.mail(ctx)
	}

	if len(r.cfg.Webhooks) > 0 {
		r.notifier.Notify(ctx, rep, webhookTargets(r.cfg.Webhooks), r.logger)
	}
}

func (r *run) mail(ctx context.Context) {
	var body strings.Builder
	if err := report.NewHTMLFormatter().Format(ctx, r.report, &body); err != nil {
		r.logger.Error("failed to render report", "error", err)
		return
	}

	e := r.cfg.Email
	subject := e.Subject
	if subject == "" {
		subject = config.DefaultSubject
	}
	msg := mail.Message{
		From:     e.From,
		To:       e.To,
		Subject:  subject,
		HTMLBody: body.String(),
		ID:       r.report.RunID,
		Date:     r.report.FinishedAt,
	}
	if err := r.mailer.Send(ctx, msg); err != nil {
		r.logger.Error("report email not sent", "error", err)
	}
}

func webhookTargets(hooks []config.WebhookConfig) []webhook.Target {
	targets := make([]webhook.Target, 0, len(hooks))
	for _, wh := range hooks {
		targets = append(targets, webhook.Target{
			Name:    wh.Name,
			URL:     wh.URL,
			Token:   wh.Token,
			Trigger: webhook.Trigger(wh.Trigger),
			Timeout: wh.Timeout.Std(),
		})
	}
	return targets
}
