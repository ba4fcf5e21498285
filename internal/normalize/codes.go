package normalize

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// Code trims whitespace, uppercases, and strips non-alphanumeric characters,
// so "d61.03 " and "D6103" compare equal.
func Code(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return nonAlphanumeric.ReplaceAllString(strings.ToUpper(s), "")
}

// CodePtr is Code for optional values. Returns nil if the input is nil or the
// result is empty.
func CodePtr(v *string) *string {
	if v == nil {
		return nil
	}
	s := Code(*v)
	if s == "" {
		return nil
	}
	return &s
}

// SameCode reports whether two codes are equal after normalization.
func SameCode(a, b string) bool {
	return Code(a) == Code(b)
}
