package parser

import "strings"

// SuppressionSet is an ordered list of benign substrings. A line is
// suppressed when it contains any of them.
type SuppressionSet []string

// ParseSuppressions splits a semicolon separated field. Each token is
// trimmed, stripped of surrounding double quotes and dropped if empty.
//
//	`"TimeoutException"; "Heartbeat missed" ;;` -> [TimeoutException, Heartbeat missed]
func ParseSuppressions(field string) SuppressionSet {
	if strings.TrimSpace(field) == "" {
		return nil
	}

	var set SuppressionSet
	for _, token := range strings.Split(field, ";") {
		token = strings.TrimSpace(token)
		token = strings.Trim(token, `"`)
		if strings.TrimSpace(token) == "" {
			continue
		}
		set = append(set, token)
	}
	return set
}

// Suppresses reports whether text contains at least one of the substrings.
func (s SuppressionSet) Suppresses(text string) bool {
	for _, sub := range s {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}

// String renders the set back into field form.
func (s SuppressionSet) String() string {
	return strings.Join(s, ";")
}
