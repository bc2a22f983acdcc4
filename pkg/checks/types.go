// Package checks implements the folder and service checks that run beside
// the error log scanner.
package checks

import "time"

// MissingDailyFile reports a folder that received no file today.
type MissingDailyFile struct {
	Folder    string    `json:"folder"`
	Date      time.Time `json:"date"`
	FileCount int       `json:"file_count"`
}

// FolderEntry is one file found in a folder that should be empty.
type FolderEntry struct {
	Folder   string `json:"folder"`
	FileName string `json:"file_name"`
}

// FileCountExceeded reports a folder holding more files than allowed.
type FileCountExceeded struct {
	Folder    string `json:"folder"`
	Threshold int    `json:"threshold"`
	Count     int    `json:"count"`
}

// ServiceMismatch reports a service whose state differs from what is expected,
// or that could not be queried (Error is set).
type ServiceMismatch struct {
	Name                string `json:"name"`
	Status              string `json:"status,omitempty"`
	ExpectedStatus      string `json:"expected_status,omitempty"`
	StatusMismatch      bool   `json:"status_mismatch"`
	StartupType         string `json:"startup_type,omitempty"`
	ExpectedStartupType string `json:"expected_startup_type,omitempty"`
	StartupMismatch     bool   `json:"startup_mismatch"`
	Error               string `json:"error,omitempty"`
}
