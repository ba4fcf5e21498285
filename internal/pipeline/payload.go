package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/gyeh/myelin/internal/claim"
	"github.com/gyeh/myelin/internal/model"
)

// Line is the engine view of a revenue line.
type Line struct {
	ServiceDate claim.Date      `json:"service_date"`
	RevenueCode string          `json:"revenue_code"`
	HCPCS       string          `json:"hcpcs,omitempty"`
	Modifiers   []string        `json:"modifiers,omitempty"`
	Units       int             `json:"units"`
	Charges     decimal.Decimal `json:"charges"`
}

// Demographics are the patient fields engines use.
type Demographics struct {
	Age         int        `json:"age"`
	Sex         string     `json:"sex"`
	DateOfBirth claim.Date `json:"date_of_birth"`
}

// GrouperInput is sent to MSDRG, HHAG and CMG.
type GrouperInput struct {
	ClaimID       string                 `json:"claim_id"`
	Setting       claim.Setting          `json:"setting"`
	CodeVersion   string                 `json:"code_version,omitempty"`
	FromDate      claim.Date             `json:"from_date"`
	ThruDate      claim.Date             `json:"thru_date"`
	AdmitDate     claim.Date             `json:"admit_date"`
	LOS           int                    `json:"los"`
	PatientStatus string                 `json:"patient_status"`
	Patient       Demographics           `json:"patient"`
	PrincipalDx   *claim.DiagnosisCode   `json:"principal_dx,omitempty"`
	AdmitDx       *claim.DiagnosisCode   `json:"admit_dx,omitempty"`
	SecondaryDxs  []claim.DiagnosisCode  `json:"secondary_dxs"`
	Procedures    []claim.ProcedureCode  `json:"procedures"`
	Lines         []Line                 `json:"lines,omitempty"`
	OASIS         *claim.OASISAssessment `json:"oasis_assessment,omitempty"`
	IRFPAI        *claim.IRFPAI          `json:"irf_pai,omitempty"`
}

// EditorInput is sent to MCE and IOCE.
type EditorInput struct {
	ClaimID       string                `json:"claim_id"`
	Setting       claim.Setting         `json:"setting"`
	CodeVersion   string                `json:"code_version,omitempty"`
	BillType      string                `json:"bill_type"`
	FromDate      claim.Date            `json:"from_date"`
	ThruDate      claim.Date            `json:"thru_date"`
	PatientStatus string                `json:"patient_status"`
	Patient       Demographics          `json:"patient"`
	PrincipalDx   *claim.DiagnosisCode  `json:"principal_dx,omitempty"`
	AdmitDx       *claim.DiagnosisCode  `json:"admit_dx,omitempty"`
	SecondaryDxs  []claim.DiagnosisCode `json:"secondary_dxs"`
	RFVDx         []string              `json:"rfvdx,omitempty"`
	Procedures    []claim.ProcedureCode `json:"procedures"`
	Lines         []Line                `json:"lines"`
	CondCodes     []string              `json:"cond_codes,omitempty"`
}

// Upstream is the part of a grouper or editor result a pricer receives.
type Upstream struct {
	Primary string           `json:"primary"`
	Version string           `json:"version,omitempty"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	Source  Source           `json:"source"`
}

// PricerInput is sent to every pricer.
type PricerInput struct {
	ClaimID         string                    `json:"claim_id"`
	Setting         claim.Setting             `json:"setting"`
	BillType        string                    `json:"bill_type"`
	FromDate        claim.Date                `json:"from_date"`
	ThruDate        claim.Date                `json:"thru_date"`
	AdmitDate       claim.Date                `json:"admit_date"`
	LOS             int                       `json:"los"`
	NonCoveredDays  int                       `json:"non_covered_days"`
	PatientStatus   string                    `json:"patient_status"`
	TotalCharges    decimal.Decimal           `json:"total_charges"`
	Patient         Demographics              `json:"patient"`
	Lines           []Line                    `json:"lines"`
	CondCodes       []string                  `json:"cond_codes,omitempty"`
	ValueCodes      []claim.ValueCode         `json:"value_codes,omitempty"`
	OccurrenceCodes []claim.OccurrenceCode    `json:"occurrence_codes,omitempty"`
	SpanCodes       []claim.SpanCode          `json:"span_codes,omitempty"`
	Provider        model.ProviderRecord      `json:"provider,omitempty"`
	Upstream        map[claim.Module]Upstream `json:"upstream,omitempty"`
	Data            any                       `json:"data,omitempty"`
}

func lines(c *claim.Claim) []Line {
	out := make([]Line, len(c.Lines))
	for i, l := range c.Lines {
		out[i] = Line{
			ServiceDate: l.ServiceDate,
			RevenueCode: l.RevenueCode,
			HCPCS:       l.HCPCS,
			Modifiers:   append([]string(nil), l.Modifiers...),
			Units:       l.Units,
			Charges:     l.Charges,
		}
	}
	return out
}

func demographics(c *claim.Claim) Demographics {
	return Demographics{Age: c.Patient.Age, Sex: c.Patient.Sex, DateOfBirth: c.Patient.DateOfBirth}
}

func codeVersion(v *View) string {
	if v.conversion == nil {
		return ""
	}
	return v.conversion.TargetVersion
}

func grouperInput(v *View) GrouperInput {
	c := v.claim.Clone()
	return GrouperInput{
		ClaimID:       c.ClaimID,
		Setting:       v.setting,
		CodeVersion:   codeVersion(v),
		FromDate:      c.FromDate,
		ThruDate:      c.ThruDate,
		AdmitDate:     c.AdmitDate,
		LOS:           c.LOS,
		PatientStatus: c.PatientStatus,
		Patient:       demographics(c),
		PrincipalDx:   c.PrincipalDx,
		AdmitDx:       c.AdmitDx,
		SecondaryDxs:  c.SecondaryDxs,
		Procedures:    c.InpatientPxs,
		Lines:         lines(c),
		OASIS:         c.OASIS,
		IRFPAI:        c.IRFPAI,
	}
}

func editorInput(v *View) EditorInput {
	c := v.claim.Clone()
	return EditorInput{
		ClaimID:       c.ClaimID,
		Setting:       v.setting,
		CodeVersion:   codeVersion(v),
		BillType:      c.BillType,
		FromDate:      c.FromDate,
		ThruDate:      c.ThruDate,
		PatientStatus: c.PatientStatus,
		Patient:       demographics(c),
		PrincipalDx:   c.PrincipalDx,
		AdmitDx:       c.AdmitDx,
		SecondaryDxs:  c.SecondaryDxs,
		RFVDx:         c.RFVDx,
		Procedures:    c.InpatientPxs,
		Lines:         lines(c),
		CondCodes:     c.CondCodes,
	}
}

// pricerData selects the claim's additional_data block for module m.
func pricerData(m claim.Module, c *claim.Claim) any {
	ad := c.AdditionalData
	switch m {
	case claim.IPPS, claim.LTCH, claim.PSYCH:
		if ad.IPPS != nil {
			return ad.IPPS
		}
	case claim.IRF:
		if ad.IRF != nil {
			return ad.IRF
		}
	case claim.SNF:
		if ad.SNF != nil {
			return ad.SNF
		}
	case claim.HHA:
		if ad.HHA != nil {
			return ad.HHA
		}
	case claim.ESRD:
		if ad.ESRD != nil {
			return ad.ESRD
		}
	case claim.FQHC:
		if ad.FQHC != nil {
			return ad.FQHC
		}
	}
	return nil
}

func pricerInput(m claim.Module, v *View, provider model.ProviderRecord, upstream map[claim.Module]*StageOutput) PricerInput {
	c := v.claim.Clone()
	in := PricerInput{
		ClaimID:         c.ClaimID,
		Setting:         v.setting,
		BillType:        c.BillType,
		FromDate:        c.FromDate,
		ThruDate:        c.ThruDate,
		AdmitDate:       c.AdmitDate,
		LOS:             c.LOS,
		NonCoveredDays:  c.NonCoveredDays,
		PatientStatus:   c.PatientStatus,
		TotalCharges:    c.TotalCharges,
		Patient:         demographics(c),
		Lines:           lines(c),
		CondCodes:       c.CondCodes,
		ValueCodes:      c.ValueCodes,
		OccurrenceCodes: c.OccurrenceCodes,
		SpanCodes:       c.SpanCodes,
		Provider:        provider,
		Data:            pricerData(m, c),
	}
	if len(upstream) > 0 {
		in.Upstream = make(map[claim.Module]Upstream, len(upstream))
		for mod, o := range upstream {
			u := Upstream{Primary: o.primary, Version: o.version, Source: o.source}
			if a, ok := o.Amount(); ok {
				u.Amount = &a
			}
			in.Upstream[mod] = u
		}
	}
	return in
}
