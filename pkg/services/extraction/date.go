package extraction

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"02.01.2006",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseDate reads an extracted date and returns the UTC calendar day it
// names. Absent or unreadable input returns fallback, which may be nil.
func ParseDate(value any, fallback *time.Time) *time.Time {
	s, ok := dateString(value)
	if !ok {
		return fallback
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &day
		}
	}
	return fallback
}

func dateString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case time.Time:
		return v.Format(time.RFC3339Nano), !v.IsZero()
	case map[string]any:
		// {"$date": "..."} as written by document database exports
		if inner, ok := v["$date"]; ok {
			return dateString(inner)
		}
	}
	return "", false
}
