package checks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ccollicutt/logwarden/pkg/service"
)

// ErrFolderNotFound is returned when a checked folder does not exist or is
// not a directory.
var ErrFolderNotFound = errors.New("folder not found")

// Checker runs folder and service checks.
type Checker struct {
	now      func() time.Time
	created  func(os.FileInfo) time.Time
	logger   *slog.Logger
	services service.Querier
}

// Option configures a Checker.
type Option func(*Checker)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		c.now = now
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = l
	}
}

// WithServiceQuerier sets how services are looked up (default: service.NewQuerier()).
func WithServiceQuerier(q service.Querier) Option {
	return func(c *Checker) {
		c.services = q
	}
}

// New creates a Checker.
func New(opts ...Option) *Checker {
	c := &Checker{now: time.Now, created: createdAt}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.services == nil {
		c.services = service.NewQuerier()
	}
	return c
}

// MissingDailyFile reports folder when no file in it was created today.
//
// deadline is the time of day the file is due. The check is skipped when the
// previous run already happened today after the deadline, since that run
// already reported on today's file. Returns nil when nothing is missing or
// the check was skipped.
func (c *Checker) MissingDailyFile(folder string, deadline time.Duration, lastRun time.Time) (*MissingDailyFile, error) {
	now := c.now()
	today := startOfDay(now)

	files, err := listFiles(folder)
	if err != nil {
		return nil, err
	}

	due := today.Add(deadline)
	if sameDay(lastRun.In(now.Location()), today) && !due.After(lastRun) {
		c.logger.Info("skipping missing daily file check, deadline passed before last run",
			"folder", folder, "deadline", due.Format("15:04:05"), "last_run", lastRun)
		return nil, nil
	}

	count := 0
	for _, f := range files {
		if sameDay(c.created(f).In(now.Location()), today) {
			count++
		}
	}

	if count > 0 {
		c.logger.Info("files found from today", "folder", folder, "count", count)
		return nil, nil
	}

	c.logger.Info("no files found from today", "folder", folder)
	return &MissingDailyFile{Folder: folder, Date: today, FileCount: count}, nil
}

// FolderNotEmpty returns one entry per file in folder. Subdirectories are ignored.
func (c *Checker) FolderNotEmpty(folder string) ([]FolderEntry, error) {
	c.logger.Info("checking if folder is not empty", "folder", folder)

	files, err := listFiles(folder)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		c.logger.Info("folder is empty", "folder", folder)
		return nil, nil
	}

	entries := make([]FolderEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, FolderEntry{Folder: folder, FileName: f.Name()})
	}
	c.logger.Info("folder contains files", "folder", folder, "count", len(files))
	return entries, nil
}

// FileCountAboveThreshold reports folder when it holds more than limit files.
func (c *Checker) FileCountAboveThreshold(folder string, limit int) (*FileCountExceeded, error) {
	c.logger.Info("checking file count", "folder", folder, "threshold", limit)

	files, err := listFiles(folder)
	if err != nil {
		return nil, err
	}

	if len(files) <= limit {
		c.logger.Info("file count within threshold", "folder", folder, "count", len(files), "threshold", limit)
		return nil, nil
	}

	c.logger.Info("file count exceeds threshold", "folder", folder, "count", len(files), "threshold", limit)
	return &FileCountExceeded{Folder: folder, Threshold: limit, Count: len(files)}, nil
}

// Service compares a service with the expectation "Status|StartupType".
// Either half may be empty to skip that comparison. A lookup failure is
// reported as a mismatch carrying the error text.
func (c *Checker) Service(ctx context.Context, name, expectation string) *ServiceMismatch {
	c.logger.Info("checking service", "service", name, "expected", expectation)

	wantStatus, wantStartup := SplitServiceExpectation(expectation)

	info, err := c.services.Query(ctx, name)
	if err != nil {
		c.logger.Error("failed to retrieve service status", "service", name, "error", err)
		return &ServiceMismatch{Name: name, Error: err.Error()}
	}

	m := &ServiceMismatch{
		Name:                name,
		Status:              info.Status,
		ExpectedStatus:      wantStatus,
		StatusMismatch:      wantStatus != "" && info.Status != wantStatus,
		StartupType:         info.StartupType,
		ExpectedStartupType: wantStartup,
		StartupMismatch:     wantStartup != "" && info.StartupType != wantStartup,
	}

	if !m.StatusMismatch && !m.StartupMismatch {
		c.logger.Info("service matches expected configuration",
			"service", name, "status", info.Status, "startup_type", info.StartupType)
		return nil
	}

	c.logger.Info("service differs from expected configuration",
		"service", name,
		"status", info.Status, "expected_status", wantStatus,
		"startup_type", info.StartupType, "expected_startup_type", wantStartup)
	return m
}

// SplitServiceExpectation splits "Running|Auto" into its two trimmed halves.
func SplitServiceExpectation(s string) (status, startup string) {
	parts := strings.Split(s, "|")
	status = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		startup = strings.TrimSpace(parts[1])
	}
	return status, startup
}

// listFiles returns the regular files directly inside folder.
func listFiles(folder string) ([]os.FileInfo, error) {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("listing folder %s: %w", folder, err)
	}

	files := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		if fi.Mode().IsRegular() {
			files = append(files, fi)
		}
	}
	return files, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
