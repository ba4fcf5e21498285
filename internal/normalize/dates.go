package normalize

import (
	"strconv"
	"strings"
	"time"
)

// Date formats seen in CMS reference files and claim payloads.
var dateFormats = []string{
	"20060102",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"2006/01/02",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
}

// ParseDate attempts to parse a date string in multiple common formats.
// Returns nil if the input is empty or unparseable.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, f := range dateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return &t
		}
	}
	return nil
}

// DateInt renders t as a YYYYMMDD integer, the layout used by the provider
// specific files.
func DateInt(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// FromDateInt converts a YYYYMMDD integer to a UTC date. ok is false for
// zero or malformed values.
func FromDateInt(v int) (time.Time, bool) {
	if v <= 0 {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", strconv.Itoa(v))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
