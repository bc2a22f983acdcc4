//go:build windows

package checks

import (
	"os"
	"syscall"
	"time"
)

// createdAt returns the file creation time.
func createdAt(fi os.FileInfo) time.Time {
	if attrs, ok := fi.Sys().(*syscall.Win32FileAttributeData); ok {
		return time.Unix(0, attrs.CreationTime.Nanoseconds())
	}
	return fi.ModTime()
}
