// Package icd converts ICD-10 diagnosis and procedure codes between annual
// code set versions.
package icd

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/gyeh/myelin/internal/normalize"
)

// Version is a code set release. It is in force from Start until the next
// version's Start.
type Version struct {
	Label string
	Start time.Time
}

// Step is one move between adjacent versions.
type Step struct {
	From, To Version
}

// Forward reports whether the step moves to a later version.
func (s Step) Forward() bool { return s.To.Start.After(s.From.Start) }

// Calendar maps service dates to code set versions. Versions are ordered,
// contiguous and non-overlapping.
type Calendar struct {
	versions []Version
	index    map[string]int
}

// NewCalendar orders versions by start date. Labels and start dates must be
// unique.
func NewCalendar(versions []Version) (*Calendar, error) {
	if len(versions) == 0 {
		return nil, fmt.Errorf("calendar has no versions")
	}
	vs := make([]Version, len(versions))
	for i, v := range versions {
		vs[i] = Version{Label: v.Label, Start: normalize.Day(v.Start)}
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].Start.Before(vs[j].Start) })

	idx := make(map[string]int, len(vs))
	for i, v := range vs {
		if v.Label == "" {
			return nil, fmt.Errorf("calendar version %d has an empty label", i)
		}
		if _, dup := idx[v.Label]; dup {
			return nil, fmt.Errorf("calendar label %q repeated", v.Label)
		}
		if i > 0 && v.Start.Equal(vs[i-1].Start) {
			return nil, fmt.Errorf("calendar versions %q and %q share start %s", vs[i-1].Label, v.Label, v.Start.Format("2006-01-02"))
		}
		idx[v.Label] = i
	}
	return &Calendar{versions: vs, index: idx}, nil
}

// FiscalYearCalendar has one version per federal fiscal year, labelled by
// the year ("2025") and starting October 1 of the prior calendar year.
func FiscalYearCalendar(firstFY, lastFY int) (*Calendar, error) {
	if lastFY < firstFY {
		return nil, fmt.Errorf("fiscal year range %d-%d is empty", firstFY, lastFY)
	}
	var vs []Version
	for fy := firstFY; fy <= lastFY; fy++ {
		vs = append(vs, Version{
			Label: strconv.Itoa(fy),
			Start: time.Date(fy-1, time.October, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	return NewCalendar(vs)
}

// msdrgBase is subtracted from the fiscal year to get the MS-DRG grouper
// version number: FY2025 is version 42.
const msdrgBase = 1983

// MSDRGCalendar follows the MS-DRG grouper releases: version NN0 starts
// October 1 and the mid-year NN1 update starts April 1. FY2025 yields "420"
// and "421".
func MSDRGCalendar(firstFY, lastFY int) (*Calendar, error) {
	if lastFY < firstFY {
		return nil, fmt.Errorf("fiscal year range %d-%d is empty", firstFY, lastFY)
	}
	var vs []Version
	for fy := firstFY; fy <= lastFY; fy++ {
		n := fy - msdrgBase
		vs = append(vs,
			Version{Label: fmt.Sprintf("%d0", n), Start: time.Date(fy-1, time.October, 1, 0, 0, 0, 0, time.UTC)},
			Version{Label: fmt.Sprintf("%d1", n), Start: time.Date(fy, time.April, 1, 0, 0, 0, 0, time.UTC)},
		)
	}
	return NewCalendar(vs)
}

// Versions returns the versions in chronological order.
func (c *Calendar) Versions() []Version {
	return append([]Version(nil), c.versions...)
}

// Lookup returns the version with the given label.
func (c *Calendar) Lookup(label string) (Version, bool) {
	i, ok := c.index[label]
	if !ok {
		return Version{}, false
	}
	return c.versions[i], true
}

// VersionAt returns the version in force on date. Dates before the first
// version are out of range; the last version stays in force indefinitely.
func (c *Calendar) VersionAt(date time.Time) (Version, bool) {
	d := normalize.Day(date)
	i := sort.Search(len(c.versions), func(i int) bool { return c.versions[i].Start.After(d) })
	if i == 0 {
		return Version{}, false
	}
	return c.versions[i-1], true
}

// Adjacent reports whether a and b are consecutive versions, in either order.
func (c *Calendar) Adjacent(a, b string) bool {
	i, ok1 := c.index[a]
	j, ok2 := c.index[b]
	return ok1 && ok2 && (i-j == 1 || j-i == 1)
}

// Previous returns the version before label.
func (c *Calendar) Previous(label string) (Version, bool) {
	i, ok := c.index[label]
	if !ok || i == 0 {
		return Version{}, false
	}
	return c.versions[i-1], true
}

// Next returns the version after label.
func (c *Calendar) Next(label string) (Version, bool) {
	i, ok := c.index[label]
	if !ok || i == len(c.versions)-1 {
		return Version{}, false
	}
	return c.versions[i+1], true
}

// Steps returns the adjacent moves from one version to another, forward or
// backward. Equal labels yield no steps.
func (c *Calendar) Steps(from, to string) ([]Step, error) {
	i, ok := c.index[from]
	if !ok {
		return nil, fmt.Errorf("unknown code set version %q", from)
	}
	j, ok := c.index[to]
	if !ok {
		return nil, fmt.Errorf("unknown code set version %q", to)
	}
	var steps []Step
	for i != j {
		next := i + 1
		if j < i {
			next = i - 1
		}
		steps = append(steps, Step{From: c.versions[i], To: c.versions[next]})
		i = next
	}
	return steps, nil
}
