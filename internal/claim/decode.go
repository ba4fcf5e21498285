package claim

import (
	"github.com/goccy/go-json"
)

// Decode parses a JSON claim and validates it. Malformed input, including
// unknown additional_data subsystems or override attributes, is reported as
// a *ValidationError.
func Decode(data []byte) (*Claim, error) {
	var c Claim
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, &ValidationError{Fields: []FieldError{{Rule: "decode", Message: err.Error()}}}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Clone returns a deep copy of c. Provider overrides are immutable and
// shared.
func (c *Claim) Clone() *Claim {
	if c == nil {
		return nil
	}
	out := *c
	out.BillingProvider = cloneProvider(c.BillingProvider)
	out.ServicingProvider = cloneProvider(c.ServicingProvider)
	out.PrincipalDx = clonePtr(c.PrincipalDx)
	out.AdmitDx = clonePtr(c.AdmitDx)
	out.SecondaryDxs = cloneSlice(c.SecondaryDxs)
	out.RFVDx = cloneSlice(c.RFVDx)
	out.InpatientPxs = cloneSlice(c.InpatientPxs)
	out.Lines = make([]LineItem, len(c.Lines))
	for i, l := range c.Lines {
		l.Modifiers = cloneSlice(l.Modifiers)
		out.Lines[i] = l
	}
	if c.Lines == nil {
		out.Lines = nil
	}
	out.CondCodes = cloneSlice(c.CondCodes)
	out.ValueCodes = cloneSlice(c.ValueCodes)
	out.OccurrenceCodes = cloneSlice(c.OccurrenceCodes)
	out.SpanCodes = cloneSlice(c.SpanCodes)
	out.DemoCodes = cloneSlice(c.DemoCodes)
	out.OASIS = clonePtr(c.OASIS)
	out.IRFPAI = clonePtr(c.IRFPAI)
	out.ICDConvert = clonePtr(c.ICDConvert)
	out.AdditionalData = c.AdditionalData.clone()
	out.Modules = cloneSlice(c.Modules)
	return &out
}

func (a AdditionalData) clone() AdditionalData {
	out := a
	out.IPPS = clonePtr(a.IPPS)
	out.IRF = clonePtr(a.IRF)
	out.SNF = clonePtr(a.SNF)
	out.HHA = clonePtr(a.HHA)
	out.FQHC = clonePtr(a.FQHC)
	if a.ESRD != nil {
		e := *a.ESRD
		e.PPAAdjustment = clonePtr(a.ESRD.PPAAdjustment)
		out.ESRD = &e
	}
	return out
}

func cloneProvider(p *Provider) *Provider {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
