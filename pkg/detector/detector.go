// Package detector recognises timestamp formats the error scanner cannot read,
// so diagnostics can say what a log folder actually contains.
package detector

import (
	"bufio"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultSampleSize is the number of lines read from a file.
const DefaultSampleSize = 50

// maxUnix bounds Unix timestamps to 1970-2100.
const maxUnix = 4102444800

// Match is one format and the sampled lines it matched.
type Match struct {
	Format *Format
	Lines  int
	Sample string
	Parsed time.Time
}

// Share is the fraction of sampled lines that matched.
func (m Match) Share(sampled int) float64 {
	if sampled == 0 {
		return 0
	}
	return float64(m.Lines) / float64(sampled)
}

// Result lists the matching formats, best first.
type Result struct {
	Sampled int
	Matches []Match
}

// Best returns the format matching the most lines, or nil.
func (r *Result) Best() *Match {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// Detector guesses the timestamp format of sampled lines.
type Detector struct {
	formats    []*Format
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines read by DetectFile.
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a Detector for the known foreign formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    Formats(),
		sampleSize: DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectLines matches each non-blank line against every format. A line is
// counted once, for the first format it matches.
func (d *Detector) DetectLines(lines []string) *Result {
	result := &Result{}
	byFormat := make(map[*Format]*Match)
	order := make(map[*Format]int, len(d.formats))
	for i, f := range d.formats {
		order[f] = i
	}

	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line == "" {
			continue
		}
		result.Sampled++

		for _, f := range d.formats {
			m := f.Pattern.FindStringSubmatch(line)
			if len(m) < 2 {
				continue
			}
			ts, ok := parse(m[1], f.Layout)
			if !ok {
				continue
			}
			if byFormat[f] == nil {
				byFormat[f] = &Match{Format: f, Sample: line, Parsed: ts}
			}
			byFormat[f].Lines++
			break
		}
	}

	for _, m := range byFormat {
		result.Matches = append(result.Matches, *m)
	}
	sort.Slice(result.Matches, func(i, j int) bool {
		a, b := result.Matches[i], result.Matches[j]
		if a.Lines != b.Lines {
			return a.Lines > b.Lines
		}
		return order[a.Format] < order[b.Format]
	})
	return result
}

// DetectFile samples the first lines of path.
func (d *Detector) DetectFile(path string) (*Result, error) {
	f, err := os.Open(path) // #nosec G304 -- configured log folders are expected
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() && len(lines) < d.sampleSize {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return d.DetectLines(lines), nil
}

func parse(s, layout string) (time.Time, bool) {
	switch layout {
	case unixSeconds, unixMillis:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		t := time.Unix(n, 0)
		if layout == unixMillis {
			t = time.UnixMilli(n)
		}
		if t.Unix() < 0 || t.Unix() > maxUnix {
			return time.Time{}, false
		}
		return t, true
	default:
		// syslog pads single digit days with a second space
		t, err := time.Parse(layout, strings.Join(strings.Fields(s), " "))
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
}
