package document

import (
	"strings"
	"time"
)

// DateLayout is how calendar dates are stored on documents
const DateLayout = "2006-01-02"

var dateLayouts = []string{DateLayout, time.RFC3339Nano, time.RFC3339}

// ParseDate reads a stored date. Both plain dates and RFC3339 timestamps are
// accepted since records are also written by other clients.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return StartOfDay(t), true
		}
	}
	return time.Time{}, false
}

// StartOfDay truncates t to midnight, as a UTC calendar date
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders t as a stored calendar date
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
