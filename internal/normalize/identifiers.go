package normalize

import "strings"

const ccnWidth = 6

// CCN trims a CMS certification number and left-pads all-digit values to
// six characters. Provider files drop leading zeros when round-tripped
// through spreadsheets.
func CCN(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || len(s) >= ccnWidth || !allDigits(s) {
		return s
	}
	return strings.Repeat("0", ccnWidth-len(s)) + s
}

// NPI keeps only the digits of a national provider identifier.
func NPI(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
