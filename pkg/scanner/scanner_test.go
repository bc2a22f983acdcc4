package scanner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/logwarden/pkg/parser"
)

var (
	epoch  = time.Time{}
	cutoff = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
)

func newTestScanner(opts ...Option) *Scanner {
	base := []Option{
		WithClassifier(parser.NewClassifier(time.UTC)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(append(base, opts...)...)
}

func writeLog(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func setModTime(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestScan_PlainMode(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "app.log",
		"2024-01-15 09:00:00 ERROR old failure",
		"old stack frame",
		"2024-01-15 10:00:00 INFO started",
		"2024-01-15 10:00:01 ERROR new failure",
		"\tat com.example.Main",
		"2024-01-15 10:00:02 INFO done",
	)

	s := newTestScanner()
	result, err := s.Scan(context.Background(), Request{Folder: dir, Cutoff: cutoff})
	require.NoError(t, err)

	require.Len(t, result.Issues, 1)
	issue := result.Issues[0]
	assert.Equal(t, dir, issue.Folder)
	assert.Equal(t, "app.log", issue.File)
	assert.Equal(t, "2024-01-15 10:00:01 ERROR new failure\n\tat com.example.Main", issue.Detail)
	assert.Equal(t, 4, issue.LineNum)

	require.Len(t, result.Files, 1)
	assert.Equal(t, 6, result.Files[0].LinesRead)
	assert.Equal(t, 1, result.Files[0].LinesSkipped, "only the timestamped old line is skipped")
	assert.NoError(t, result.Files[0].Err)
}

func TestScan_ContinuationNeverCutoffFiltered(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "app.log",
		"2024-01-15 09:59:59 INFO before cutoff",
		"orphan without timestamp",
		"2024-01-15 10:00:00 ERROR at cutoff",
		"detail",
	)

	result, err := newTestScanner().Scan(context.Background(), Request{Folder: dir, Cutoff: cutoff})
	require.NoError(t, err)

	require.Len(t, result.Issues, 1)
	assert.Equal(t, "2024-01-15 10:00:00 ERROR at cutoff\ndetail", result.Issues[0].Detail)
}

func TestScan_ExceptionFilteredMode(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "svc.log",
		"2024-01-15 10:00:01 ERROR TimeoutException at foo",
		"2024-01-15 10:00:02 ERROR NullRef",
		"  stack frame",
		"2024-01-15 09:00:00 ERROR before cutoff",
	)

	req := Request{
		Folder:       dir,
		Cutoff:       cutoff,
		Suppressions: parser.SuppressionSet{"TimeoutException"},
	}
	req.Mode = ModeFor(req.Suppressions)

	result, err := newTestScanner().Scan(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, ModeExceptionFiltered, result.Mode)
	assert.Equal(t, []string{"2024-01-15 10:00:02 ERROR NullRef"}, details(result.Issues))
}

func TestScan_FolderNotFound(t *testing.T) {
	_, err := newTestScanner().Scan(context.Background(), Request{Folder: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFolderNotFound))
}

func TestScan_PathIsFile(t *testing.T) {
	path := writeLog(t, t.TempDir(), "not-a-dir.log", "x")
	_, err := newTestScanner().Scan(context.Background(), Request{Folder: path})
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestScan_EmptyFolderIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	result, err := newTestScanner().Scan(context.Background(), Request{Folder: dir})
	require.NoError(t, err)
	assert.Empty(t, result.Issues)
	assert.Empty(t, result.Files)
}

func TestScan_SkipsFilesNotModifiedAfterCutoff(t *testing.T) {
	dir := t.TempDir()
	stale := writeLog(t, dir, "stale.log", "2024-02-01 00:00:00 ERROR stale content")
	fresh := writeLog(t, dir, "fresh.log", "2024-02-01 00:00:00 ERROR fresh content")
	same := writeLog(t, dir, "same.log", "2024-02-01 00:00:00 ERROR same instant")

	setModTime(t, stale, cutoff.Add(-time.Hour))
	setModTime(t, fresh, cutoff.Add(time.Hour))
	setModTime(t, same, cutoff)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0755))

	result, err := newTestScanner().Scan(context.Background(), Request{Folder: dir, Cutoff: cutoff})
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.Equal(t, "fresh.log", result.Files[0].Name)
	assert.Equal(t, 2, result.Unchanged)
	assert.Equal(t, []string{"2024-02-01 00:00:00 ERROR fresh content"}, details(result.Issues))
}

func TestScan_FileOrderIsStable(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.log", "a.log", "b.log"} {
		writeLog(t, dir, name, "2024-02-01 00:00:00 ERROR in "+name)
	}

	result, err := newTestScanner().Scan(context.Background(), Request{Folder: dir})
	require.NoError(t, err)

	var files []string
	for _, issue := range result.Issues {
		files = append(files, issue.File)
	}
	assert.Equal(t, []string{"a.log", "b.log", "c.log"}, files)
}

// faultyOpener serves real files, except that the named one fails mid-read.
func faultyOpener(failing string, cause error) Opener {
	return func(path string) (io.ReadCloser, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if filepath.Base(path) != failing {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
		half := data[:len(data)/2]
		return io.NopCloser(io.MultiReader(bytes.NewReader(half), iotest.ErrReader(cause))), nil
	}
}

func TestScan_PerFileFaultIsolation(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "1-first.log",
		"2024-02-01 00:00:00 ERROR first",
		"first detail",
	)
	writeLog(t, dir, "2-second.log",
		"2024-02-01 00:00:00 ERROR second emitted before fault",
		"2024-02-01 00:00:01 ERROR second",
		"2024-02-01 00:00:02 INFO padding padding padding padding",
		"2024-02-01 00:00:03 ERROR lost after fault",
	)
	writeLog(t, dir, "3-third.log",
		"2024-02-01 00:00:00 ERROR third",
	)

	boom := errors.New("device not ready")
	for _, workers := range []int{1, 3} {
		s := newTestScanner(WithOpener(faultyOpener("2-second.log", boom)), WithWorkers(workers))
		result, err := s.Scan(context.Background(), Request{Folder: dir})
		require.NoError(t, err)

		got := details(result.Issues)
		assert.Contains(t, got, "2024-02-01 00:00:00 ERROR first\nfirst detail")
		assert.Contains(t, got, "2024-02-01 00:00:00 ERROR third")
		assert.NotContains(t, got, "2024-02-01 00:00:03 ERROR lost after fault")

		failed := result.FailedFiles()
		require.Len(t, failed, 1)
		assert.Equal(t, "2-second.log", failed[0].Name)

		var fileErr *FileError
		require.ErrorAs(t, failed[0].Err, &fileErr)
		assert.Equal(t, UnexpectedLineFault, fileErr.Kind)
		assert.ErrorIs(t, failed[0].Err, boom)
	}
}

func TestScan_UnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.log", "2024-02-01 00:00:00 ERROR a")
	writeLog(t, dir, "locked.log", "2024-02-01 00:00:00 ERROR locked")
	writeLog(t, dir, "z.log", "2024-02-01 00:00:00 ERROR z")

	denied := errors.New("sharing violation")
	open := func(path string) (io.ReadCloser, error) {
		if filepath.Base(path) == "locked.log" {
			return nil, denied
		}
		return os.Open(path)
	}

	result, err := newTestScanner(WithOpener(open)).Scan(context.Background(), Request{Folder: dir})
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-02-01 00:00:00 ERROR a", "2024-02-01 00:00:00 ERROR z"}, details(result.Issues))

	failed := result.FailedFiles()
	require.Len(t, failed, 1)
	var fileErr *FileError
	require.ErrorAs(t, failed[0].Err, &fileErr)
	assert.Equal(t, FileUnreadable, fileErr.Kind)
	assert.ErrorIs(t, fileErr, denied)
}

func TestScan_LongLineTruncated(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.log",
		"2024-02-01 00:00:00 ERROR kept",
		"2024-02-01 00:00:01 INFO closes block",
		strings.Repeat("x", 512),
		"2024-02-01 00:00:02 ERROR after long line",
	)
	writeLog(t, dir, "b.log", "2024-02-01 00:00:00 ERROR b")

	s := newTestScanner(WithReaderOptions(parser.ReaderOptions{MaxLineSize: 128}))
	result, err := s.Scan(context.Background(), Request{Folder: dir})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-02-01 00:00:00 ERROR kept",
		"2024-02-01 00:00:02 ERROR after long line",
		"2024-02-01 00:00:00 ERROR b",
	}, details(result.Issues))
	assert.Empty(t, result.FailedFiles())
	require.Len(t, result.Files, 2)
	assert.Equal(t, 4, result.Files[0].LinesRead)
	assert.Equal(t, 1, result.Files[0].LinesTruncated)
}

func TestScan_OversizedInfoLineClosesBlock(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.log",
		"2024-02-01 10:00:01 ERROR first",
		"2024-02-01 10:00:02 INFO payload "+strings.Repeat("x", 2<<20),
		"2024-02-01 10:00:03 ERROR second",
	)

	result, err := newTestScanner().Scan(context.Background(), Request{Folder: dir})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-02-01 10:00:01 ERROR first",
		"2024-02-01 10:00:03 ERROR second",
	}, details(result.Issues))
	assert.Empty(t, result.FailedFiles())
}

// lineSlice is a LineSource over fixed lines that fails with err when done.
type lineSlice struct {
	lines []parser.LogLine
	err   error
}

func (l *lineSlice) Next(context.Context) (parser.LogLine, error) {
	if len(l.lines) == 0 {
		return parser.LogLine{}, l.err
	}
	line := l.lines[0]
	l.lines = l.lines[1:]
	return line, nil
}

func (l *lineSlice) Close() error { return nil }

func TestDrain(t *testing.T) {
	c := parser.NewClassifier(time.UTC)
	lines := func() []parser.LogLine {
		long := c.Classify("2024-01-15 10:00:02 INFO cut")
		long.Truncated = true
		return []parser.LogLine{
			c.Classify("2024-01-15 09:00:00 ERROR before cutoff"),
			c.Classify("2024-01-15 10:00:01 ERROR open"),
			c.Classify("continuation"),
			long,
		}
	}

	t.Run("end of input finalizes", func(t *testing.T) {
		out := NewCollector("/logs", "app.log")
		var rep FileReport
		err := drain(context.Background(), &lineSlice{lines: lines(), err: io.EOF}, cutoff, NewBlockAccumulator(out), &rep)
		require.NoError(t, err)

		assert.Equal(t, []string{"2024-01-15 10:00:01 ERROR open\ncontinuation"}, details(out.Issues()))
		assert.Equal(t, FileReport{LinesRead: 4, LinesSkipped: 1, LinesTruncated: 1}, rep)
	})

	t.Run("read fault keeps emitted issues", func(t *testing.T) {
		boom := errors.New("boom")
		src := &lineSlice{lines: append(lines()[:3], c.Classify("2024-01-15 10:00:05 ERROR open again")), err: boom}
		out := NewCollector("/logs", "app.log")
		var rep FileReport
		err := drain(context.Background(), src, cutoff, NewBlockAccumulator(out), &rep)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"2024-01-15 10:00:01 ERROR open\ncontinuation"}, details(out.Issues()))
	})
}

func TestScan_CutoffMonotonicity(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "app.log",
		"2024-01-15 09:00:00 ERROR a",
		"trace a",
		"2024-01-15 09:30:00 INFO ok",
		"2024-01-15 10:00:00 ERROR b",
		"2024-01-15 10:30:00 ERROR c",
		"untimestamped ERROR d",
		"2024-01-15 11:00:00 WARN w",
		"2024-01-15 11:30:00 ERROR e",
	)

	s := newTestScanner()
	prev := -1
	for _, c := range []time.Time{
		epoch,
		cutoff.Add(-time.Hour),
		cutoff.Add(-30 * time.Minute),
		cutoff,
		cutoff.Add(30 * time.Minute),
		cutoff.Add(90 * time.Minute),
		cutoff.Add(2 * time.Hour),
	} {
		result, err := s.Scan(context.Background(), Request{Folder: dir, Cutoff: c})
		require.NoError(t, err)
		n := len(result.Issues)
		if prev >= 0 {
			assert.LessOrEqual(t, n, prev, "cutoff %v increased issues", c)
		}
		prev = n
	}
}

func TestScan_IdempotentRescan(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.log", "2024-02-01 00:00:00 ERROR a", "detail")
	writeLog(t, dir, "b.log", "2024-02-01 00:00:00 INFO b", "2024-02-01 00:00:01 ERROR b")

	s := newTestScanner()
	first, err := s.Scan(context.Background(), Request{Folder: dir, Cutoff: cutoff})
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), Request{Folder: dir, Cutoff: cutoff})
	require.NoError(t, err)

	assert.Equal(t, first.Issues, second.Issues)
}

func TestScan_ParallelMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		name := string(rune('a'+i)) + ".log"
		writeLog(t, dir, name,
			"2024-02-01 00:00:00 ERROR start "+name,
			"frame 1",
			"frame 2",
			"2024-02-01 00:00:01 INFO end",
			"2024-02-01 00:00:02 ERROR tail "+name,
		)
	}

	seq, err := newTestScanner().Scan(context.Background(), Request{Folder: dir})
	require.NoError(t, err)
	par, err := newTestScanner(WithWorkers(4)).Scan(context.Background(), Request{Folder: dir})
	require.NoError(t, err)

	assert.Len(t, seq.Issues, 24)
	assert.Equal(t, seq.Issues, par.Issues)
	assert.Equal(t, len(seq.Files), len(par.Files))
}

func TestScan_ContextCancelled(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.log", "2024-02-01 00:00:00 ERROR a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestScanner().Scan(ctx, Request{Folder: dir})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Empty(t, result.Issues)
}

func TestScan_UTF16File(t *testing.T) {
	dir := t.TempDir()
	// UTF-16LE with BOM, as written by some Windows services.
	text := "2024-02-01 00:00:00 ERROR wide\r\n  detail\r\n"
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE})
	for _, r := range text {
		buf.Write([]byte{byte(r), 0})
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wide.log"), buf.Bytes(), 0644))

	result, err := newTestScanner().Scan(context.Background(), Request{Folder: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-01 00:00:00 ERROR wide\n  detail"}, details(result.Issues))
}
