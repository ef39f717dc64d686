package transform

import (
	"strings"
	"time"
)

// Layouts the backend has been seen to emit for timestamp columns
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses a backend timestamp. Unparseable or nil input
// yields the zero time. Values without a zone are taken as UTC.
func ParseTimestamp(s *string) time.Time {
	if s == nil {
		return time.Time{}
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ParseTimestampPtr is ParseTimestamp for optional columns
func ParseTimestampPtr(s *string) *time.Time {
	t := ParseTimestamp(s)
	if t.IsZero() {
		return nil
	}
	return &t
}

// FormatTimestamp renders t as RFC 3339 in UTC; the zero time becomes nil
func FormatTimestamp(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

// FormatTimestampPtr is FormatTimestamp for optional fields
func FormatTimestampPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return FormatTimestamp(*t)
}
