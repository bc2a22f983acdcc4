//go:build !windows

package checks

import (
	"os"
	"time"
)

// createdAt approximates creation time with the modification time; most Unix
// filesystems do not expose a portable birth time.
func createdAt(fi os.FileInfo) time.Time {
	return fi.ModTime()
}
