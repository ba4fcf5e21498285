package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	assert.Equal(t, "D6103", Code(" d61.03 "))
	assert.Equal(t, "", Code("  "))
	assert.True(t, SameCode("D61.03", "D6103"))
	assert.Nil(t, CodePtr(nil))
	s := "."
	assert.Nil(t, CodePtr(&s))
}

func TestCCN(t *testing.T) {
	assert.Equal(t, "012525", CCN("12525"))
	assert.Equal(t, "012525", CCN(" 012525 "))
	assert.Equal(t, "05T123", CCN("05t123"))
	assert.Equal(t, "", CCN(""))
}

func TestNPI(t *testing.T) {
	assert.Equal(t, "1234567890", NPI("123-456-7890"))
}

func TestDateInt_RoundTrip(t *testing.T) {
	d := time.Date(2025, 1, 15, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, 20250115, DateInt(d))
	back, ok := FromDateInt(20250115)
	assert.True(t, ok)
	assert.Equal(t, Day(d), back)

	_, ok = FromDateInt(0)
	assert.False(t, ok)
	_, ok = FromDateInt(20251340)
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"20250115", "2025-01-15", "01/15/2025", "01/15/25"} {
		got := ParseDate(s)
		if assert.NotNil(t, got, s) {
			assert.Equal(t, "2025-01-15", got.Format("2006-01-02"), s)
		}
	}
	assert.Nil(t, ParseDate("not a date"))
}

func TestValues(t *testing.T) {
	got := Values([]string{"a", "b", "c"}, []string{" 1 ", "", "3", "extra"})
	assert.Equal(t, map[string]any{"a": "1", "c": "3"}, got)

	got = Values([]string{"a", "b"}, []string{"x"})
	assert.Equal(t, map[string]any{"a": "x"}, got)
}

func TestRowHash_Stable(t *testing.T) {
	a := RowHash(map[string]string{"x": "1", "y": "2"})
	b := RowHash(map[string]string{"y": "2", "x": "1"})
	assert.Equal(t, a, b)
}
