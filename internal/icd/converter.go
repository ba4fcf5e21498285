package icd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gyeh/myelin/internal/claim"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/normalize"
)

// Status is the outcome of converting one code.
type Status string

const (
	StatusUnchanged     Status = "unchanged"
	StatusMapped        Status = "mapped"
	StatusAmbiguous     Status = "ambiguous"
	StatusUnconvertible Status = "unconvertible"
)

// TieBreak picks among several candidates when none, or more than one, is
// flagged default.
type TieBreak string

const (
	TieBreakLexical     TieBreak = "lexical"
	TieBreakFirstListed TieBreak = "first-listed"
)

// Unlisted decides what a code with no edge at a step means.
type Unlisted string

const (
	// UnlistedUnconvertible treats an unlisted code as having no candidates.
	UnlistedUnconvertible Unlisted = "unconvertible"
	// UnlistedIdentity treats an unlisted code as valid in both versions.
	// CMS conversion tables list only changed codes.
	UnlistedIdentity Unlisted = "identity"
)

// Policy configures a Converter. The zero value is lexical/unconvertible.
type Policy struct {
	TieBreak TieBreak `yaml:"tie_break"`
	Unlisted Unlisted `yaml:"unlisted"`
}

func (p Policy) withDefaults() Policy {
	if p.TieBreak == "" {
		p.TieBreak = TieBreakLexical
	}
	if p.Unlisted == "" {
		p.Unlisted = UnlistedUnconvertible
	}
	return p
}

// Validate reports an unknown policy value.
func (p Policy) Validate() error {
	p = p.withDefaults()
	switch p.TieBreak {
	case TieBreakLexical, TieBreakFirstListed:
	default:
		return fmt.Errorf("unknown tie_break %q", p.TieBreak)
	}
	switch p.Unlisted {
	case UnlistedUnconvertible, UnlistedIdentity:
	default:
		return fmt.Errorf("unknown unlisted policy %q", p.Unlisted)
	}
	return nil
}

// Directive selects source and target versions for a claim.
type Directive struct {
	Mode   claim.ConvertMode
	Target string
	Billed string
}

// DirectiveFor reads the claim's icd_convert block. ok is false when no
// conversion was requested.
func DirectiveFor(c *claim.Claim) (d Directive, ok bool) {
	if c.ICDConvert == nil || c.ICDConvert.Option == claim.ConvertNone || c.ICDConvert.Option == "" {
		return Directive{}, false
	}
	return Directive{
		Mode:   c.ICDConvert.Option,
		Target: c.ICDConvert.TargetVersion,
		Billed: c.ICDConvert.BilledVersion,
	}, true
}

// Mapping is the conversion of one billed code.
type Mapping struct {
	Code          string           `json:"code"`
	System        model.CodeSystem `json:"system"`
	SourceVersion string           `json:"source_version"`
	TargetVersion string           `json:"target_version"`
	Resolved      []string         `json:"resolved"`
	Chosen        string           `json:"chosen"`
	Status        Status           `json:"status"`
	StoppedAt     string           `json:"stopped_at,omitempty"`
}

// Result holds the mappings for every distinct code on a claim, in claim
// order.
type Result struct {
	BilledVersion string    `json:"billed_version"`
	TargetVersion string    `json:"target_version"`
	Mappings      []Mapping `json:"mappings"`
}

// Lookup finds the mapping for a billed code.
func (r *Result) Lookup(system model.CodeSystem, code string) (Mapping, bool) {
	if r == nil {
		return Mapping{}, false
	}
	n := normalize.Code(code)
	for _, m := range r.Mappings {
		if m.System == system && normalize.Code(m.Code) == n {
			return m, true
		}
	}
	return Mapping{}, false
}

// Counts tallies mappings by status.
func (r *Result) Counts() map[Status]int {
	out := make(map[Status]int)
	if r == nil {
		return out
	}
	for _, m := range r.Mappings {
		out[m.Status]++
	}
	return out
}

// ConversionError means a claim's codes could not be converted at all (an
// unknown version, or a service date outside the calendar). Callers keep
// the billed codes.
type ConversionError struct {
	ClaimID string
	Reason  string
	Err     error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("icd conversion for claim %s: %s: %v", e.ClaimID, e.Reason, e.Err)
	}
	return fmt.Sprintf("icd conversion for claim %s: %s", e.ClaimID, e.Reason)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Converter carries codes across versions through a Mapper. It holds no
// mutable state.
type Converter struct {
	cal    *Calendar
	mapper *Mapper
	policy Policy
}

// NewConverter validates the policy and binds it to a mapper.
func NewConverter(mapper *Mapper, policy Policy) (*Converter, error) {
	if mapper == nil {
		return nil, fmt.Errorf("converter requires a mapper")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Converter{cal: mapper.Calendar(), mapper: mapper, policy: policy.withDefaults()}, nil
}

// Calendar returns the converter's calendar.
func (cv *Converter) Calendar() *Calendar { return cv.cal }

// versions resolves the directive to a (billed, target) pair.
func (cv *Converter) versions(c *claim.Claim, d Directive) (string, string, error) {
	billed := d.Billed
	switch d.Mode {
	case claim.ConvertAuto:
		v, ok := cv.cal.VersionAt(c.ThruDate.Time)
		if c.ThruDate.IsZero() || !ok {
			return "", "", &ConversionError{ClaimID: c.ClaimID, Reason: fmt.Sprintf("no code set version in force on %s", c.ThruDate.Format("2006-01-02"))}
		}
		billed = v.Label
	case claim.ConvertManual:
		if billed == "" {
			return "", "", &ConversionError{ClaimID: c.ClaimID, Reason: "manual conversion requires billed_version"}
		}
	default:
		return "", "", &ConversionError{ClaimID: c.ClaimID, Reason: fmt.Sprintf("unsupported option %q", d.Mode)}
	}
	for _, l := range []string{billed, d.Target} {
		if _, ok := cv.cal.Lookup(l); !ok {
			return "", "", &ConversionError{ClaimID: c.ClaimID, Reason: fmt.Sprintf("unknown code set version %q", l)}
		}
	}
	return billed, d.Target, nil
}

// GenerateClaimMappings converts every distinct diagnosis and procedure on
// the claim. Codes that cannot be carried to the target are reported as
// unconvertible, never omitted.
func (cv *Converter) GenerateClaimMappings(c *claim.Claim, d Directive) (*Result, error) {
	billed, target, err := cv.versions(c, d)
	if err != nil {
		return nil, err
	}
	steps, err := cv.cal.Steps(billed, target)
	if err != nil {
		return nil, &ConversionError{ClaimID: c.ClaimID, Reason: "version path", Err: err}
	}

	res := &Result{BilledVersion: billed, TargetVersion: target}
	seen := make(map[edgeKey]bool)
	add := func(system model.CodeSystem, code string) {
		k := edgeKey{system: system, code: normalize.Code(code)}
		if k.code == "" || seen[k] {
			return
		}
		seen[k] = true
		res.Mappings = append(res.Mappings, cv.carry(system, code, billed, target, steps))
	}
	for _, dx := range c.Diagnoses() {
		add(model.DiagnosisCodes, dx.Code)
	}
	for _, px := range c.InpatientPxs {
		add(model.ProcedureCodes, px.Code)
	}
	return res, nil
}

// Convert carries a single code from one version to another.
func (cv *Converter) Convert(system model.CodeSystem, code, from, to string) (Mapping, error) {
	steps, err := cv.cal.Steps(from, to)
	if err != nil {
		return Mapping{}, err
	}
	return cv.carry(system, code, from, to, steps), nil
}

func (cv *Converter) carry(system model.CodeSystem, billed, from, to string, steps []Step) Mapping {
	code := strings.TrimSpace(billed)
	m := Mapping{
		Code:          code,
		System:        system,
		SourceVersion: from,
		TargetVersion: to,
		Chosen:        code,
		Resolved:      []string{code},
		Status:        StatusUnchanged,
	}

	chosen := normalize.Code(code)
	set := []string{chosen}
	for _, st := range steps {
		cands := cv.candidates(system, st, chosen)
		if len(cands) == 0 {
			m.Status = StatusUnconvertible
			m.StoppedAt = st.From.Label
			break
		}
		pick, ordered, ambiguous := choose(cands, cv.policy.TieBreak)
		switch {
		case ambiguous:
			m.Status = StatusAmbiguous
		case pick != chosen && m.Status == StatusUnchanged:
			m.Status = StatusMapped
		}
		set = cv.advance(system, st, pick, ordered, set[1:])
		chosen = pick
	}

	m.Chosen = formatLike(code, chosen)
	m.Resolved = make([]string, len(set))
	for i, s := range set {
		m.Resolved[i] = formatLike(code, s)
	}
	return m
}

// candidates applies the unlisted policy to one lookup.
func (cv *Converter) candidates(system model.CodeSystem, st Step, code string) []Candidate {
	cands, listed := cv.mapper.Candidates(system, st.From.Label, st.To.Label, code)
	if !listed && cv.policy.Unlisted == UnlistedIdentity {
		return []Candidate{{Code: code, Default: true}}
	}
	return cands
}

// advance computes the next candidate set: the pick, the pick's siblings,
// then whatever the other members of the previous set map to.
func (cv *Converter) advance(system model.CodeSystem, st Step, pick string, ordered []string, rest []string) []string {
	next := []string{pick}
	have := map[string]bool{pick: true}
	push := func(c string) {
		if !have[c] {
			have[c] = true
			next = append(next, c)
		}
	}
	for _, c := range ordered {
		push(c)
	}
	for _, prev := range rest {
		cands := cv.candidates(system, st, prev)
		_, ord, _ := choose(cands, cv.policy.TieBreak)
		for _, c := range ord {
			push(c)
		}
	}
	return next
}

// choose returns the picked code, all candidate codes with the pick first,
// and whether the pick needed a tie-break.
func choose(cands []Candidate, tb TieBreak) (pick string, ordered []string, ambiguous bool) {
	if len(cands) == 0 {
		return "", nil, false
	}
	codes := make([]string, len(cands))
	var defaults []string
	for i, c := range cands {
		codes[i] = c.Code
		if c.Default {
			defaults = append(defaults, c.Code)
		}
	}
	if tb == TieBreakLexical {
		sort.Strings(codes)
		sort.Strings(defaults)
	}

	switch {
	case len(cands) == 1:
		pick = codes[0]
	case len(defaults) == 1:
		pick = defaults[0]
	case len(defaults) > 1:
		pick, ambiguous = defaults[0], true
	default:
		pick, ambiguous = codes[0], true
	}

	ordered = append(ordered, pick)
	for _, c := range codes {
		if c != pick {
			ordered = append(ordered, c)
		}
	}
	return pick, ordered, ambiguous
}

// formatLike renders code with a dot after the category when the billed
// code was written that way ("D61.03").
func formatLike(billed, code string) string {
	if strings.Contains(billed, ".") && len(code) > 3 && !strings.Contains(code, ".") {
		return code[:3] + "." + code[3:]
	}
	if normalize.Code(billed) == code {
		return billed
	}
	return code
}

// ApplyMappings returns a copy of c with every converted code replaced by
// its chosen target. Unconvertible codes stay as billed.
func ApplyMappings(c *claim.Claim, r *Result) *claim.Claim {
	out := c.Clone()
	if r == nil {
		return out
	}
	rewrite := func(system model.CodeSystem, code *string) {
		m, ok := r.Lookup(system, *code)
		if !ok || m.Status == StatusUnconvertible {
			return
		}
		*code = m.Chosen
	}
	for _, dx := range out.Diagnoses() {
		rewrite(model.DiagnosisCodes, &dx.Code)
	}
	for i := range out.InpatientPxs {
		rewrite(model.ProcedureCodes, &out.InpatientPxs[i].Code)
	}
	return out
}
