package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ccollicutt/logwarden/pkg/parser"
)

// Opener opens a log file for reading. The default is os.Open.
type Opener func(path string) (io.ReadCloser, error)

// Scanner scans log folders. It holds no per-scan state and may be reused.
type Scanner struct {
	classifier *parser.Classifier
	readerOpts parser.ReaderOptions
	open       Opener
	logger     *slog.Logger
	workers    int
}

// Option configures scanner behavior.
type Option func(*Scanner)

// WithClassifier sets the line classifier (default: local time zone).
func WithClassifier(c *parser.Classifier) Option {
	return func(s *Scanner) {
		s.classifier = c
	}
}

// WithReaderOptions sets line size limits and fallback encoding.
func WithReaderOptions(opts parser.ReaderOptions) Option {
	return func(s *Scanner) {
		s.readerOpts = opts
	}
}

// WithOpener replaces the function used to open files.
func WithOpener(open Opener) Option {
	return func(s *Scanner) {
		s.open = open
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// WithWorkers scans up to n files of a folder at once. Each file is still
// read in order by a single worker, and results are merged in file order.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		s.workers = n
	}
}

// New creates a scanner.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		workers: 1,
		open: func(path string) (io.ReadCloser, error) {
			return os.Open(path) // #nosec G304 -- configured log folders are expected
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.classifier == nil {
		s.classifier = parser.NewClassifier(nil)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// fileOutcome is the isolated result of a single file.
type fileOutcome struct {
	report FileReport
	issues []Issue
	done   bool
}

// Scan scans every file in req.Folder modified after req.Cutoff.
//
// It returns an error wrapping ErrFolderNotFound if the folder is missing.
// Per-file failures never fail the scan; they are logged and recorded in
// Result.Files. If ctx is cancelled the partial result is returned with
// ctx.Err().
func (s *Scanner) Scan(ctx context.Context, req Request) (*Result, error) {
	logger := s.logger.With("folder", req.Folder, "mode", req.Mode.String())
	logger.Info("checking for errors")

	info, err := os.Stat(req.Folder)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFolderNotFound, req.Folder, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrFolderNotFound, req.Folder)
	}

	files, unchanged, err := s.candidates(req, logger)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Folder:    req.Folder,
		Mode:      req.Mode,
		Unchanged: unchanged,
	}

	outcomes := s.scanFiles(ctx, req, files)
	for _, o := range outcomes {
		if !o.done {
			continue
		}
		result.Files = append(result.Files, o.report)
		result.Issues = append(result.Issues, o.issues...)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// candidates lists regular files modified strictly after the cutoff, in name order.
func (s *Scanner) candidates(req Request, logger *slog.Logger) ([]string, int, error) {
	entries, err := os.ReadDir(req.Folder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing folder %s: %w", req.Folder, err)
	}

	var files []string
	unchanged := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between listing and stat.
			logger.Warn("skipping file", "file", entry.Name(), "error", err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if !info.ModTime().After(req.Cutoff) {
			unchanged++
			continue
		}
		files = append(files, filepath.Join(req.Folder, entry.Name()))
	}
	return files, unchanged, nil
}

func (s *Scanner) scanFiles(ctx context.Context, req Request, files []string) []fileOutcome {
	outcomes := make([]fileOutcome, len(files))

	if s.workers == 1 || len(files) < 2 {
		for i, path := range files {
			if ctx.Err() != nil {
				break
			}
			outcomes[i] = s.scanFile(ctx, req, path)
		}
		return outcomes
	}

	workers := s.workers
	if workers > len(files) {
		workers = len(files)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				// Each index is owned by exactly one worker.
				outcomes[i] = s.scanFile(ctx, req, files[i])
			}
		}()
	}

feed:
	for i := range files {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// scanFile processes one file to completion. The file is always closed.
func (s *Scanner) scanFile(ctx context.Context, req Request, path string) (out fileOutcome) {
	name := filepath.Base(path)
	logger := s.logger.With("folder", req.Folder, "file", path)
	out.report = FileReport{Name: name, Path: path}
	out.done = true

	collector := NewCollector(req.Folder, name)
	defer func() {
		if r := recover(); r != nil {
			out.report.Err = &FileError{Path: path, Kind: UnexpectedLineFault, Err: fmt.Errorf("panic: %v", r)}
			logger.Warn("unexpected error in file", "error", out.report.Err)
		}
		out.issues = collector.Issues()
		out.report.Issues = len(out.issues)
	}()

	logger.Info("checking file")

	rc, err := s.open(path)
	if err != nil {
		out.report.Err = &FileError{Path: path, Kind: FileUnreadable, Err: err}
		logger.Warn("skipping file due to IO error", "error", err)
		return out
	}

	reader := parser.NewLineReader(rc, path, s.classifier, s.readerOpts)
	defer reader.Close()

	err = drain(ctx, reader, req.Cutoff, s.processor(req, collector), &out.report)
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		out.done = false
		return out
	case err != nil:
		// Issues already emitted stay; the open block is lost.
		out.report.Err = &FileError{Path: path, Kind: UnexpectedLineFault, Err: err}
		logger.Warn("unexpected error in file", "error", err, "lines_read", out.report.LinesRead)
		return out
	}

	if out.report.LinesTruncated > 0 {
		logger.Warn("long lines truncated", "lines", out.report.LinesTruncated,
			"max_line_size", s.readerOpts.MaxLineSize)
	}
	for _, issue := range collector.Issues() {
		logger.Info("issue found", "line", issue.LineNum)
	}
	return out
}

// drain feeds every line of src at or after cutoff to proc, finalizing proc
// at end of input. Line counts go to rep.
func drain(ctx context.Context, src parser.LineSource, cutoff time.Time, proc LineProcessor, rep *FileReport) error {
	for {
		line, err := src.Next(ctx)
		if err == io.EOF {
			proc.Finalize()
			return nil
		}
		if err != nil {
			return err
		}

		rep.LinesRead++
		if line.Truncated {
			rep.LinesTruncated++
		}
		if line.Before(cutoff) {
			rep.LinesSkipped++
			continue
		}
		proc.Process(line)
	}
}

func (s *Scanner) processor(req Request, out *Collector) LineProcessor {
	if req.Mode == ModeExceptionFiltered {
		return NewExceptionFilter(out, req.Suppressions)
	}
	return NewBlockAccumulator(out)
}
