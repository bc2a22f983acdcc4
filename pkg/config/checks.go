package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/logwarden/pkg/checks"
)

// ErrMissingColumns is returned for check list rows with fewer than four columns.
var ErrMissingColumns = errors.New("invalid config entry, missing columns")

// RowError describes a check list row that was rejected.
type RowError struct {
	Source string
	Line   int
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ParseChecks reads a delimited check list, one "method,path,active,param"
// entry per line. Blank lines and lines starting with '#' are ignored.
// Rows with fewer than four columns are returned as rejects, not as an error;
// err is only set when r cannot be read.
func ParseChecks(r io.Reader, source string) (entries []CheckConfig, rejected []error, err error) {
	sc := bufio.NewScanner(r)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		// Columns past the fourth are ignored. Params never contain commas.
		columns := strings.Split(line, ",")
		if len(columns) < 4 {
			rejected = append(rejected, &RowError{Source: source, Line: lineNum, Err: ErrMissingColumns})
			continue
		}

		active := strings.EqualFold(strings.TrimSpace(columns[2]), "Y")
		entries = append(entries, CheckConfig{
			Method: strings.TrimSpace(columns[0]),
			Path:   strings.TrimSpace(columns[1]),
			Active: &active,
			Param:  strings.TrimSpace(columns[3]),
			Source: fmt.Sprintf("%s:%d", source, lineNum),
		})
	}
	if err := sc.Err(); err != nil {
		return entries, rejected, fmt.Errorf("reading %s: %w", source, err)
	}
	return entries, rejected, nil
}

// LoadChecksFile reads a delimited check list from disk.
func LoadChecksFile(path string) ([]CheckConfig, []error, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided checks path is expected
	if err != nil {
		return nil, nil, fmt.Errorf("opening checks file: %w", err)
	}
	defer f.Close()
	return ParseChecks(f, path)
}

// ValidateCheck checks a single entry for structural faults.
func ValidateCheck(c CheckConfig) error {
	switch c.Kind() {
	case MethodMissingDailyFile:
		if err := requirePath(c); err != nil {
			return err
		}
		_, err := c.Deadline()
		return err
	case MethodFolderNotEmpty, MethodCheckError:
		return requirePath(c)
	case MethodFileCountThreshold:
		if err := requirePath(c); err != nil {
			return err
		}
		_, err := c.Threshold()
		return err
	case MethodServices:
		if strings.TrimSpace(c.Path) == "" {
			return errors.New("service name is required")
		}
		return nil
	default:
		return fmt.Errorf("unknown method %q", c.Method)
	}
}

// ValidateChecks validates every entry of cfg, active or not, and joins the
// failures with their position.
func ValidateChecks(cfg *Config) error {
	var errs []error
	for i, c := range cfg.Checks {
		if err := ValidateCheck(c); err != nil {
			errs = append(errs, fmt.Errorf("checks[%d] (%s): %w", i, c.Method, err))
		}
	}
	return errors.Join(errs...)
}

func requirePath(c CheckConfig) error {
	if strings.TrimSpace(c.Path) == "" {
		return errors.New("folder path is required")
	}
	return nil
}

// Deadline parses Param as the time of day a daily file is due.
func (c CheckConfig) Deadline() (time.Duration, error) {
	d, err := checks.ParseTimeOfDay(c.Param)
	if err != nil {
		return 0, fmt.Errorf("invalid time format %q: %w", c.Param, err)
	}
	return d, nil
}

// Threshold parses Param as a file count limit.
func (c CheckConfig) Threshold() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Param))
	if err != nil {
		return 0, fmt.Errorf("invalid file limit value %q", c.Param)
	}
	return n, nil
}
