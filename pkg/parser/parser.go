package parser

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMaxLineSize is the number of bytes of a line a LineReader keeps by
// default.
const DefaultMaxLineSize = 1024 * 1024

const readBufferSize = 64 * 1024

// ReaderOptions controls how a LineReader decodes and splits its input.
type ReaderOptions struct {
	// MaxLineSize is the number of bytes of a line that are kept. The rest of
	// a longer line is read and discarded. Zero means DefaultMaxLineSize.
	MaxLineSize int

	// Fallback is the encoding assumed when the input has no byte order mark.
	// Nil means UTF-8.
	Fallback encoding.Encoding
}

// LineReader streams classified lines from a single log file.
type LineReader struct {
	rc         io.ReadCloser
	br         *bufio.Reader
	classifier *Classifier
	source     string
	maxLine    int
	lineNum    int
}

var _ LineSource = (*LineReader)(nil)

// NewLineReader wraps rc. UTF-8 and UTF-16 byte order marks are honoured and
// stripped; otherwise the input is decoded with opts.Fallback.
// The reader takes ownership of rc and closes it in Close.
func NewLineReader(rc io.ReadCloser, source string, c *Classifier, opts ReaderOptions) *LineReader {
	maxLine := opts.MaxLineSize
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}

	fallback := opts.Fallback
	if fallback == nil {
		fallback = unicode.UTF8
	}

	decoded := transform.NewReader(rc, unicode.BOMOverride(fallback.NewDecoder()))

	return &LineReader{
		rc:         rc,
		br:         bufio.NewReaderSize(decoded, readBufferSize),
		classifier: c,
		source:     source,
		maxLine:    maxLine,
	}
}

// Next returns the next classified line, or io.EOF at end of input.
// A line longer than MaxLineSize is cut and marked Truncated; it is still
// classified on the bytes kept.
func (r *LineReader) Next(ctx context.Context) (LogLine, error) {
	select {
	case <-ctx.Done():
		return LogLine{}, ctx.Err()
	default:
	}

	text, truncated, err := r.readLine()
	if err == io.EOF {
		return LogLine{}, io.EOF
	}
	if err != nil {
		return LogLine{}, fmt.Errorf("reading %s at line %d: %w", r.source, r.lineNum+1, err)
	}

	r.lineNum++
	line := r.classifier.Classify(text)
	line.LineNum = r.lineNum
	line.Truncated = truncated
	return line, nil
}

// readLine returns the next line without its terminator, keeping at most
// maxLine bytes. A final line without a newline is returned before io.EOF.
func (r *LineReader) readLine() (string, bool, error) {
	var buf []byte
	seen, truncated := false, false

	for {
		chunk, err := r.br.ReadSlice('\n')
		seen = seen || len(chunk) > 0

		complete := len(chunk) > 0 && chunk[len(chunk)-1] == '\n'
		if complete {
			chunk = bytes.TrimSuffix(chunk[:len(chunk)-1], []byte("\r"))
		}
		if truncated {
			chunk = nil
		} else if room := r.maxLine - len(buf); len(chunk) > room {
			// cut on a rune boundary
			for room > 0 && !utf8.RuneStart(chunk[room]) {
				room--
			}
			chunk = chunk[:room]
			truncated = true
		}
		buf = append(buf, chunk...)

		switch {
		case complete:
			return string(bytes.TrimSuffix(buf, []byte("\r"))), truncated, nil
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF:
			if !seen {
				return "", false, io.EOF
			}
			return string(bytes.TrimSuffix(buf, []byte("\r"))), truncated, nil
		default:
			return "", false, err
		}
	}
}

// Close releases the underlying file.
func (r *LineReader) Close() error {
	if r.rc == nil {
		return nil
	}
	err := r.rc.Close()
	r.rc = nil
	return err
}

// LookupEncoding resolves an encoding label such as "utf-8", "utf-16le" or
// "windows-1252". An empty name resolves to UTF-8.
func LookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}
