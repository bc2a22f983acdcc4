package scanner

import "github.com/ccollicutt/logwarden/pkg/parser"

// LineProcessor turns the lines of one file into issues.
// Lines arrive in file order and have already passed the cutoff filter.
type LineProcessor interface {
	// Process handles a single classified line.
	Process(line parser.LogLine)

	// Finalize is called once at end of file and flushes pending state.
	Finalize()
}

// Collector accumulates issues for one file. It is not safe for concurrent use;
// each file gets its own.
type Collector struct {
	folder string
	file   string
	issues []Issue
}

// NewCollector creates a collector that tags issues with folder and file.
func NewCollector(folder, file string) *Collector {
	return &Collector{folder: folder, file: file}
}

func (c *Collector) add(detail string, lineNum int) {
	c.issues = append(c.issues, Issue{
		Folder:  c.folder,
		File:    c.file,
		Detail:  detail,
		LineNum: lineNum,
	})
}

// Issues returns the issues collected so far.
func (c *Collector) Issues() []Issue {
	return c.issues
}
