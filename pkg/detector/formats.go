package detector

import (
	"regexp"
	"time"
)

// Format is a timestamp format the error scanner does not read. Lines that
// start with one of these are treated as undated and are never filtered by
// the last run time.
type Format struct {
	Name    string
	Pattern *regexp.Regexp // first submatch is the timestamp
	Layout  string         // Go time layout, or unixSeconds / unixMillis
	Example string
}

const (
	unixSeconds = "UNIX_SECONDS"
	unixMillis  = "UNIX_MILLIS"
)

func format(name, pattern, layout, example string) *Format {
	return &Format{Name: name, Pattern: regexp.MustCompile(pattern), Layout: layout, Example: example}
}

// Formats returns the known foreign formats, more specific patterns first.
// "yyyy-MM-dd HH:mm:ss" and its fractional variants are absent because the
// scanner reads them.
func Formats() []*Format {
	return []*Format{
		format("ISO 8601 with offset", `^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2}))`,
			time.RFC3339, "2024-01-15T10:30:00.123+01:00"),
		format("ISO 8601", `^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?)`,
			"2006-01-02T15:04:05", "2024-01-15T10:30:00"),
		format("Bracketed datetime", `^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\]`,
			"2006-01-02 15:04:05", "[2024-01-15 10:30:00]"),
		format("Syslog with year", `^(\w{3}\s+\d{1,2}\s+\d{4}\s+\d{2}:\d{2}:\d{2})`,
			"Jan 2 2006 15:04:05", "Jun 14 2024 15:16:01"),
		format("Syslog (BSD)", `^(\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})`,
			"Jan 2 15:04:05", "Jun 14 15:16:01"),
		format("Apache/NGINX CLF", `\[(\d{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2}\s+[+-]\d{4})\]`,
			"02/Jan/2006:15:04:05 -0700", "[15/Jun/2024:10:30:00 +0000]"),
		format("Windows event export", `^(\d{1,2}/\d{1,2}/\d{4}\s+\d{1,2}:\d{2}:\d{2}\s+[AP]M)`,
			"1/2/2006 3:04:05 PM", "3/20/2024 2:05:10 PM"),
		format("Day first date", `^(\d{2}\.\d{2}\.\d{4}\s+\d{2}:\d{2}:\d{2})`,
			"02.01.2006 15:04:05", "20.03.2024 14:05:10"),
		format("US date", `^(\d{2}/\d{2}/\d{4}\s+\d{2}:\d{2}:\d{2})`,
			"01/02/2006 15:04:05", "03/20/2024 14:05:10"),
		format("Unix timestamp (milliseconds)", `^(\d{13})(?:\s|$|\])`,
			unixMillis, "1705315800000"),
		format("Unix timestamp (seconds)", `^(\d{10})(?:\s|$|\])`,
			unixSeconds, "1705315800"),
	}
}
