package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gyeh/myelin/internal/claim"
	"github.com/gyeh/myelin/internal/engine"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/refdata"
)

// Stage is implemented by Editor, Grouper and Pricer.
type Stage interface {
	Module() claim.Module
	Family() claim.Family
	Accepts(claim.Setting) bool
	Process(ctx context.Context, v *View, upstream ...*StageOutput) (*StageOutput, error)
}

type fieldCheck func(*claim.Claim) *claim.FieldError

func needPrincipalDx(c *claim.Claim) *claim.FieldError {
	if c.PrincipalDx == nil || c.PrincipalDx.Code == "" {
		return &claim.FieldError{Field: "principal_dx", Rule: "required", Message: "principal diagnosis is required"}
	}
	return nil
}

func needLines(c *claim.Claim) *claim.FieldError {
	if len(c.Lines) == 0 {
		return &claim.FieldError{Field: "lines", Rule: "min", Message: "at least one line is required"}
	}
	return nil
}

func needOASIS(c *claim.Claim) *claim.FieldError {
	if c.OASIS == nil {
		return &claim.FieldError{Field: "oasis_assessment", Rule: "required", Message: "OASIS assessment is required"}
	}
	return nil
}

func needIRFPAI(c *claim.Claim) *claim.FieldError {
	if c.IRFPAI == nil {
		return &claim.FieldError{Field: "irf_pai", Rule: "required", Message: "IRF-PAI assessment is required"}
	}
	return nil
}

// stageDef declares what a module accepts.
type stageDef struct {
	settings []claim.Setting
	checks   []fieldCheck
	variant  model.Variant // provider data a pricer resolves; "" for none
}

var stageDefs = map[claim.Module]stageDef{
	claim.MCE:     {settings: []claim.Setting{claim.Inpatient, claim.Rehabilitation}, checks: []fieldCheck{needPrincipalDx}},
	claim.IOCE:    {settings: []claim.Setting{claim.Outpatient, claim.Dialysis}, checks: []fieldCheck{needLines}},
	claim.MSDRG:   {settings: []claim.Setting{claim.Inpatient}, checks: []fieldCheck{needPrincipalDx}},
	claim.HHAG:    {settings: []claim.Setting{claim.HomeHealth}, checks: []fieldCheck{needOASIS}},
	claim.CMG:     {settings: []claim.Setting{claim.Rehabilitation}, checks: []fieldCheck{needIRFPAI}},
	claim.IPPS:    {settings: []claim.Setting{claim.Inpatient}, checks: []fieldCheck{needPrincipalDx}, variant: model.Inpatient},
	claim.LTCH:    {settings: []claim.Setting{claim.Inpatient}, checks: []fieldCheck{needPrincipalDx}, variant: model.Inpatient},
	claim.PSYCH:   {settings: []claim.Setting{claim.Inpatient}, checks: []fieldCheck{needPrincipalDx}, variant: model.Inpatient},
	claim.IRF:     {settings: []claim.Setting{claim.Rehabilitation}, variant: model.Inpatient},
	claim.SNF:     {settings: []claim.Setting{claim.SkilledNursing}, checks: []fieldCheck{needLines}, variant: model.Inpatient},
	claim.HHA:     {settings: []claim.Setting{claim.HomeHealth}, checks: []fieldCheck{needLines}, variant: model.Inpatient},
	claim.OPPS:    {settings: []claim.Setting{claim.Outpatient}, checks: []fieldCheck{needLines}, variant: model.Outpatient},
	claim.ESRD:    {settings: []claim.Setting{claim.Dialysis}, checks: []fieldCheck{needLines}, variant: model.Outpatient},
	claim.FQHC:    {settings: []claim.Setting{claim.Outpatient}, checks: []fieldCheck{needLines}, variant: model.Outpatient},
	claim.HOSPICE: {settings: []claim.Setting{claim.Hospice}, checks: []fieldCheck{needLines}},
}

// AcceptedSettings lists the care settings module m accepts.
func AcceptedSettings(m claim.Module) []claim.Setting {
	return append([]claim.Setting(nil), stageDefs[m].settings...)
}

// ProviderVariant is the provider record variant pricer m resolves.
func ProviderVariant(m claim.Module) (model.Variant, bool) {
	v := stageDefs[m].variant
	return v, v != ""
}

// base is shared by the three adapter kinds.
type base struct {
	module claim.Module
	def    stageDef
	ext    extension
}

func newBase(m claim.Module, family claim.Family, e engine.Engine, hooks *Hooks) (base, error) {
	if !m.Valid() {
		return base{}, fmt.Errorf("unknown module %q", m)
	}
	if m.Family() != family {
		return base{}, fmt.Errorf("%s is a %s, not a %s", m, m.Family(), family)
	}
	if e == nil {
		return base{}, fmt.Errorf("%s: no engine", m)
	}
	ext, err := hooks.apply(m, e)
	if err != nil {
		return base{}, err
	}
	return base{module: m, def: stageDefs[m], ext: ext}, nil
}

func (b *base) Module() claim.Module { return b.module }
func (b *base) Family() claim.Family { return b.module.Family() }

func (b *base) Accepts(s claim.Setting) bool {
	for _, x := range b.def.settings {
		if x == s {
			return true
		}
	}
	return false
}

// HasCapability reports a flag enabled by a capability hook.
func (b *base) HasCapability(flag string) bool { return b.ext.flags[flag] }

// Operations lists the adapter's operation names, built-in first.
func (b *base) Operations() []string {
	names := make([]string, 0, len(b.ext.operations))
	for n := range b.ext.operations {
		names = append(names, n)
	}
	sort.Strings(names)
	return append([]string{OpProcess}, names...)
}

// ErrUnknownOperation is returned by Operation for unregistered names.
var ErrUnknownOperation = errors.New("unknown operation")

// Operation runs a hook-registered operation on a copy of v.
func (b *base) Operation(ctx context.Context, name string, v *View) (any, error) {
	op, ok := b.ext.operations[name]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", b.module, name, ErrUnknownOperation)
	}
	return op(ctx, v.clone())
}

// validate rejects claims the adapter cannot take.
func (b *base) validate(v *View) error {
	if v.setting == "" {
		return claim.Reject(v.ClaimID(), "setting", "setting", "care setting could not be determined for %s", b.module)
	}
	if !b.Accepts(v.setting) {
		return claim.Reject(v.ClaimID(), "setting", "setting", "%s does not accept %s claims", b.module, v.setting)
	}
	var fields []claim.FieldError
	for _, check := range b.def.checks {
		if fe := check(v.claim); fe != nil {
			fields = append(fields, *fe)
		}
	}
	if len(fields) > 0 {
		return &claim.ValidationError{ClaimID: v.ClaimID(), Fields: fields}
	}
	return nil
}

func (b *base) call(ctx context.Context, v *View, payload any) (*StageOutput, error) {
	req := engine.Request{ClaimID: v.ClaimID(), Module: b.module, Family: b.Family(), Payload: payload}
	resp, err := b.ext.engine.Call(ctx, req)
	if err != nil {
		return nil, &engine.ExternalEngineError{ClaimID: v.ClaimID(), Module: b.module, Err: err}
	}
	if resp == nil {
		return nil, &engine.ExternalEngineError{ClaimID: v.ClaimID(), Module: b.module, Err: errors.New("empty response")}
	}
	return NewStageOutput(b.module, resp), nil
}

// Editor adapts MCE and IOCE.
type Editor struct{ base }

// NewEditor builds an editor adapter for m, applying hooks.
func NewEditor(m claim.Module, e engine.Engine, hooks *Hooks) (*Editor, error) {
	b, err := newBase(m, claim.Editor, e, hooks)
	if err != nil {
		return nil, err
	}
	return &Editor{b}, nil
}

func (a *Editor) Process(ctx context.Context, v *View, upstream ...*StageOutput) (*StageOutput, error) {
	if err := a.validate(v); err != nil {
		return nil, err
	}
	if _, err := satisfy(a.module, v.claim, upstream); err != nil {
		return nil, err
	}
	return a.call(ctx, v, editorInput(v))
}

// Grouper adapts MSDRG, HHAG and CMG.
type Grouper struct{ base }

// NewGrouper builds a grouper adapter for m, applying hooks.
func NewGrouper(m claim.Module, e engine.Engine, hooks *Hooks) (*Grouper, error) {
	b, err := newBase(m, claim.Grouper, e, hooks)
	if err != nil {
		return nil, err
	}
	return &Grouper{b}, nil
}

func (a *Grouper) Process(ctx context.Context, v *View, upstream ...*StageOutput) (*StageOutput, error) {
	if err := a.validate(v); err != nil {
		return nil, err
	}
	if _, err := satisfy(a.module, v.claim, upstream); err != nil {
		return nil, err
	}
	return a.call(ctx, v, grouperInput(v))
}

// Pricer adapts the payment pricers. Pricers that use provider data
// resolve it from the billing provider for the claim's thru date.
type Pricer struct {
	base
	resolver *refdata.Resolver
}

// NewPricer builds a pricer adapter for m, applying hooks.
func NewPricer(m claim.Module, e engine.Engine, resolver *refdata.Resolver, hooks *Hooks) (*Pricer, error) {
	b, err := newBase(m, claim.Pricer, e, hooks)
	if err != nil {
		return nil, err
	}
	if b.def.variant != "" && resolver == nil {
		return nil, fmt.Errorf("%s: provider resolver required", m)
	}
	return &Pricer{base: b, resolver: resolver}, nil
}

func (a *Pricer) Process(ctx context.Context, v *View, upstream ...*StageOutput) (*StageOutput, error) {
	if err := a.validate(v); err != nil {
		return nil, err
	}
	up, err := satisfy(a.module, v.claim, upstream)
	if err != nil {
		return nil, err
	}
	var provider model.ProviderRecord
	if a.def.variant != "" {
		c := v.claim
		if c.BillingProvider == nil {
			return nil, claim.Reject(c.ClaimID, "billing_provider", "required", "%s requires a billing provider", a.module)
		}
		provider, err = a.resolver.ResolveProvider(c.BillingProvider, c.ThruDate.Time, a.def.variant)
		if err != nil {
			return nil, err
		}
	}
	return a.call(ctx, v, pricerInput(a.module, v, provider, up))
}

// NewStage builds the adapter matching m's family.
func NewStage(m claim.Module, e engine.Engine, resolver *refdata.Resolver, hooks *Hooks) (Stage, error) {
	var (
		s   Stage
		err error
	)
	switch m.Family() {
	case claim.Editor:
		var a *Editor
		a, err = NewEditor(m, e, hooks)
		s = a
	case claim.Grouper:
		var a *Grouper
		a, err = NewGrouper(m, e, hooks)
		s = a
	default:
		var a *Pricer
		a, err = NewPricer(m, e, resolver, hooks)
		s = a
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
