package icd

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/normalize"
)

// ErrNoHeader means a conversion table lacked its header row.
var ErrNoHeader = errors.New("conversion table header not found")

var (
	cmColumnSplit = regexp.MustCompile(`\s{2,}|\t`)
	cmCodeSplit   = regexp.MustCompile(`[;,]`)
)

const maxLine = 1 << 20

// ParseCMTable reads the CMS ICD-10-CM conversion table: a text file with a
// "Current code assignment / Effective date / Previous Code(s) Assignment"
// header, columns separated by two or more spaces or a tab. Previous code
// lists may contain ranges ("H02.101-H02.106", "S52.1-3"). Rows whose
// previous assignment is "None" or a list of categories are skipped.
func ParseCMTable(r io.Reader) ([]model.ConversionRow, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	found := false
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "Current code assignment") && strings.Contains(line, "Previous Code(s) Assignment") {
			found = true
			break
		}
	}
	if !found {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoHeader
	}

	var rows []model.ConversionRow
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := cmColumnSplit.Split(line, 3)
		if len(parts) < 3 {
			continue
		}
		current, effective, previous := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])
		lower := strings.ToLower(previous)
		if strings.Contains(lower, "none") || strings.Contains(lower, "categories") {
			continue
		}
		date, err := parseCMEffective(effective)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		for _, prev := range expandPrevious(previous) {
			rows = append(rows, model.ConversionRow{
				System:        model.DiagnosisCodes,
				CurrentCode:   normalize.Code(current),
				PreviousCode:  normalize.Code(prev),
				EffectiveDate: date,
			})
		}
	}
	return rows, sc.Err()
}

// parseCMEffective accepts a fiscal year ("2017", in force from October 1,
// 2016) or an off-cycle date ("01/01/21").
func parseCMEffective(s string) (time.Time, error) {
	if fy, err := strconv.Atoi(s); err == nil {
		return time.Date(fy-1, time.October, 1, 0, 0, 0, 0, time.UTC), nil
	}
	if t, err := time.Parse("01/02/06", s); err == nil {
		return t, nil
	}
	if t := normalize.ParseDate(s); t != nil {
		return *t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized effective date %q", s)
}

func expandPrevious(s string) []string {
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, " and ", ", ")

	var out []string
	for _, code := range cmCodeSplit.Split(s, -1) {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		start, end, isRange := strings.Cut(code, "-")
		if !isRange || strings.Contains(end, "-") {
			out = append(out, code)
			continue
		}
		start, end = strings.TrimSpace(start), strings.TrimSpace(end)
		if len(end) < len(start) {
			end = start[:len(start)-len(end)] + end
		}
		out = append(out, ExpandRange(start, end)...)
	}
	return out
}

// ExpandRange lists the codes from start to end when they differ only in a
// numeric suffix, zero-padded to the suffix width. Other ranges yield just
// the two endpoints.
func ExpandRange(start, end string) []string {
	if start == end {
		return []string{start}
	}
	n := 0
	for n < len(start) && n < len(end) && start[n] == end[n] {
		n++
	}
	prefix, a, b := start[:n], start[n:], end[n:]
	lo, err1 := strconv.Atoi(a)
	hi, err2 := strconv.Atoi(b)
	if a == "" || b == "" || err1 != nil || err2 != nil || !allDigits(a) || !allDigits(b) || hi < lo {
		return []string{start, end}
	}
	out := make([]string, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, fmt.Sprintf("%s%0*d", prefix, len(a), i))
	}
	return out
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PCS table columns (tab separated, one header row).
const (
	pcsCurrent   = 0
	pcsYear      = 2
	pcsPrevious  = 3
	pcsMonthDay  = 7
	pcsMinFields = 8
)

// ParsePCSTable reads the CMS ICD-10-PCS conversion table. Rows marked
// "NOPCS" and rows mapping a code to itself are skipped.
func ParsePCSTable(r io.Reader) ([]model.ConversionRow, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoHeader
	}

	var rows []model.ConversionRow
	for sc.Scan() {
		parts := strings.Split(strings.TrimRight(sc.Text(), "\r\n"), "\t")
		if len(parts) < pcsMinFields {
			continue
		}
		current := strings.TrimSpace(parts[pcsCurrent])
		var previous []string
		for _, p := range strings.Split(parts[pcsPrevious], ",") {
			if p = strings.TrimSpace(p); p != "" {
				previous = append(previous, p)
			}
		}
		if len(previous) == 0 || strings.EqualFold(current, "nopcs") || strings.EqualFold(previous[0], "nopcs") || current == previous[0] {
			continue
		}
		date, ok := pcsEffective(strings.TrimSpace(parts[pcsYear]), strings.TrimSpace(parts[pcsMonthDay]))
		if !ok {
			continue
		}
		for _, prev := range previous {
			rows = append(rows, model.ConversionRow{
				System:        model.ProcedureCodes,
				CurrentCode:   normalize.Code(current),
				PreviousCode:  normalize.Code(prev),
				EffectiveDate: date,
			})
		}
	}
	return rows, sc.Err()
}

// pcsEffective combines the fiscal year with an optional "MM.DD". October
// through December dates belong to the prior calendar year. No month/day
// means January 1 of the year.
func pcsEffective(year, monthDay string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil || len(year) != 4 {
		return time.Time{}, false
	}
	month, day := 1, 1
	if m, d, ok := strings.Cut(monthDay, "."); ok {
		mm, err1 := strconv.Atoi(m)
		dd, err2 := strconv.Atoi(d)
		if err1 == nil && err2 == nil && mm >= 1 && mm <= 12 && dd >= 1 && dd <= 31 {
			month, day = mm, dd
		}
	}
	if month >= 10 {
		y--
	}
	return time.Date(y, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

var crosswalkHeader = []string{"code_type", "source_version", "source_code", "target_version", "target_code", "is_default"}

// ParseCrosswalk reads explicit single-step edges from a CSV with the
// header code_type,source_version,source_code,target_version,target_code,is_default.
// code_type is 0/1 or a system name; is_default is optional.
func ParseCrosswalk(r io.Reader) ([]model.EquivalenceRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read crosswalk header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range crosswalkHeader[:5] {
		if _, ok := idx[h]; !ok {
			return nil, fmt.Errorf("crosswalk header missing column %q", h)
		}
	}

	var rows []model.EquivalenceRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("crosswalk line %d: %w", line, err)
		}
		field := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		sys, err := parseSystem(field("code_type"))
		if err != nil {
			return nil, fmt.Errorf("crosswalk line %d: %w", line, err)
		}
		def := false
		if v := field("is_default"); v != "" {
			if def, err = strconv.ParseBool(v); err != nil {
				return nil, fmt.Errorf("crosswalk line %d: is_default %q: %w", line, v, err)
			}
		}
		rows = append(rows, model.EquivalenceRow{
			System:        sys,
			SourceVersion: field("source_version"),
			SourceCode:    normalize.Code(field("source_code")),
			TargetVersion: field("target_version"),
			TargetCode:    normalize.Code(field("target_code")),
			Default:       def,
		})
	}
}

func parseSystem(s string) (model.CodeSystem, error) {
	if n, err := strconv.Atoi(s); err == nil {
		for _, info := range model.AllCodeSystems {
			if int(info.System) == n {
				return info.System, nil
			}
		}
	}
	if sys, ok := model.CodeSystemByName(s); ok {
		return sys, nil
	}
	return 0, fmt.Errorf("unknown code_type %q", s)
}
