// Package pipeline adapts resolved claims to the external engines and
// sequences grouper, editor and pricer stages.
package pipeline

import (
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/gyeh/myelin/internal/claim"
	"github.com/gyeh/myelin/internal/engine"
)

// Source says where a StageOutput came from.
type Source string

const (
	SourceEngine Source = "engine"
	// SourceClaim marks an output synthesized from the claim itself, such as
	// a precomputed DRG.
	SourceClaim Source = "claim"
)

// StageOutput is the immutable result of one stage. It is returned even
// when the engine reported business rule failures.
type StageOutput struct {
	module  claim.Module
	family  claim.Family
	source  Source
	version string
	primary string
	amount  *decimal.Decimal
	codes   []engine.ReturnCode
	detail  json.RawMessage
}

// NewStageOutput copies an engine response into a StageOutput.
func NewStageOutput(m claim.Module, resp *engine.Response) *StageOutput {
	out := &StageOutput{module: m, family: m.Family(), source: SourceEngine}
	if resp == nil {
		return out
	}
	out.version = resp.Version
	out.primary = resp.Primary
	if resp.Amount != nil {
		a := *resp.Amount
		out.amount = &a
	}
	out.codes = append([]engine.ReturnCode(nil), resp.Codes...)
	out.detail = append(json.RawMessage(nil), resp.Detail...)
	return out
}

// ClaimSourced builds a grouper output from a value already on the claim.
func ClaimSourced(m claim.Module, primary string) *StageOutput {
	return &StageOutput{
		module:  m,
		family:  claim.Grouper,
		source:  SourceClaim,
		primary: primary,
		codes: []engine.ReturnCode{{
			Code:        "CLAIM_SOURCED",
			Description: string(m) + " result taken from the claim",
			Severity:    engine.SeverityInfo,
		}},
	}
}

func (o *StageOutput) Module() claim.Module { return o.module }
func (o *StageOutput) Family() claim.Family { return o.family }
func (o *StageOutput) Source() Source       { return o.source }
func (o *StageOutput) Version() string      { return o.version }

// Primary is the classification: a DRG, HIPPS code, CMG or APC status.
func (o *StageOutput) Primary() string { return o.primary }

// Amount is the payable amount, when the stage produced one.
func (o *StageOutput) Amount() (decimal.Decimal, bool) {
	if o.amount == nil {
		return decimal.Zero, false
	}
	return *o.amount, true
}

// Codes returns a copy of the return codes in engine order.
func (o *StageOutput) Codes() []engine.ReturnCode {
	return append([]engine.ReturnCode(nil), o.codes...)
}

// Detail returns a copy of the raw engine detail.
func (o *StageOutput) Detail() json.RawMessage {
	return append(json.RawMessage(nil), o.detail...)
}

// HasErrors reports whether any return code has error severity.
func (o *StageOutput) HasErrors() bool {
	for _, c := range o.codes {
		if c.Severity == engine.SeverityError {
			return true
		}
	}
	return false
}

type stageOutputJSON struct {
	Module  claim.Module        `json:"module"`
	Family  claim.Family        `json:"family"`
	Source  Source              `json:"source"`
	Version string              `json:"version,omitempty"`
	Primary string              `json:"primary,omitempty"`
	Amount  *decimal.Decimal    `json:"amount,omitempty"`
	Codes   []engine.ReturnCode `json:"codes"`
	Detail  json.RawMessage     `json:"detail,omitempty"`
}

func (o *StageOutput) MarshalJSON() ([]byte, error) {
	codes := o.codes
	if codes == nil {
		codes = []engine.ReturnCode{}
	}
	return json.Marshal(stageOutputJSON{
		Module:  o.module,
		Family:  o.family,
		Source:  o.source,
		Version: o.version,
		Primary: o.primary,
		Amount:  o.amount,
		Codes:   codes,
		Detail:  o.detail,
	})
}
