// Package state keeps the start time of the previous run on disk and makes
// sure only one run uses a state file at a time.
package state

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// TimeLayout is the layout of the recorded start time.
const TimeLayout = "2006-01-02 15:04:05.000"

const linePrefix = "Start Time: "

var (
	// ErrNotFound means no previous run was recorded.
	ErrNotFound = errors.New("state file not found")
	// ErrUnparseable means the state file exists but holds no start time.
	ErrUnparseable = errors.New("unable to parse last start time")
	// ErrLocked means another run holds the state file.
	ErrLocked = errors.New("state file is locked by another run")
)

// accepted layouts when reading, most specific first.
var readLayouts = []string{
	TimeLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// Store reads and writes one state file.
type Store struct {
	path string
	loc  *time.Location
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the location start times are written and read in
// (default: time.Local).
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		s.loc = loc
	}
}

// New creates a Store for path.
func New(path string, opts ...Option) *Store {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// ReadLastRun returns the recorded start time of the previous run, taken
// from the last line of the file. It returns the zero time with an error
// wrapping ErrNotFound or ErrUnparseable when there is nothing usable;
// callers treat that as "scan everything".
func (s *Store) ReadLastRun() (time.Time, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return time.Time{}, fmt.Errorf("reading state file: %w", err)
	}

	last := lastLine(data)
	value := strings.TrimSpace(strings.TrimPrefix(last, linePrefix))
	for _, layout := range readLayouts {
		if t, err := time.ParseInLocation(layout, value, s.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w from %s: %q", ErrUnparseable, s.path, last)
}

// WriteLastRun records t as the start of the current run, replacing the
// file atomically.
func (s *Store) WriteLastRun(t time.Time) error {
	line := linePrefix + t.In(s.loc).Format(TimeLayout) + "\n"
	if err := atomicWrite(s.path, []byte(line)); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// lastLine returns the last non-blank line of data.
func lastLine(data []byte) string {
	var last string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimRight(sc.Text(), "\r"); strings.TrimSpace(line) != "" {
			last = line
		}
	}
	return last
}

// atomicWrite writes data to a temp file in the target directory and
// renames it over path, so readers never see a partial file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	// Renamed; nothing to clean up.
	tempFile = nil
	return nil
}

// Lock is an exclusive hold on a state file.
type Lock struct {
	flock *flock.Flock
	path  string
}

// Lock takes an exclusive lock on "<state file>.lock" without blocking.
// It returns ErrLocked if another run holds it.
func (s *Store) Lock() (*Lock, error) {
	path := s.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	fl := flock.New(path)
	acquired, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to try lock on %s: %w", path, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return &Lock{flock: fl, path: path}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Unlock releases the lock. The lock file is left in place.
func (l *Lock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}
