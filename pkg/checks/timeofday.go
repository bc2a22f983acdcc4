package checks

import (
	"fmt"
	"strings"
	"time"
)

var timeOfDayLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04PM",
	"3:04 PM",
	"3:04:05PM",
	"3:04:05 PM",
	"3PM",
	"3 PM",
}

// ParseTimeOfDay parses a clock time such as "09:30", "17:45:00" or "6:00 PM"
// into the offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range timeOfDayLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Duration(t.Hour())*time.Hour +
			time.Duration(t.Minute())*time.Minute +
			time.Duration(t.Second())*time.Second, nil
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}
