package scanner

import (
	"strings"

	"github.com/ccollicutt/logwarden/pkg/parser"
)

// openBlock is the buffer of the block being built. A nil *openBlock means
// no block is open.
type openBlock struct {
	lines   []string
	lineNum int
}

// BlockAccumulator groups error lines into blocks.
//
// A block starts at an error line and absorbs every following line without a
// timestamp. It is emitted when the next error line arrives (which opens a new
// block) or when a timestamped non-error line arrives (which is discarded).
// A block still open at end of file is emitted by Finalize.
type BlockAccumulator struct {
	out  *Collector
	open *openBlock
}

var _ LineProcessor = (*BlockAccumulator)(nil)

// NewBlockAccumulator creates an accumulator that emits into out.
func NewBlockAccumulator(out *Collector) *BlockAccumulator {
	return &BlockAccumulator{out: out}
}

// Process handles a single line.
func (a *BlockAccumulator) Process(line parser.LogLine) {
	switch {
	case line.IsError:
		// Two consecutive error lines are two incidents.
		a.emit()
		a.open = &openBlock{lines: []string{line.Text}, lineNum: line.LineNum}
	case a.open == nil:
		// Idle: non-error lines are not part of any block.
	case !line.HasTimestamp:
		a.open.lines = append(a.open.lines, line.Text)
	default:
		a.emit()
	}
}

// Finalize emits the open block, if any.
func (a *BlockAccumulator) Finalize() {
	a.emit()
}

func (a *BlockAccumulator) emit() {
	if a.open == nil {
		return
	}
	a.out.add(strings.Join(a.open.lines, "\n"), a.open.lineNum)
	a.open = nil
}
