package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/myelin/internal/claim"
	"github.com/gyeh/myelin/internal/engine"
	"github.com/gyeh/myelin/internal/icd"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/refdata"
)

// fakeEngine records every call and answers with the module name as the
// primary classification.
type fakeEngine struct {
	mu    sync.Mutex
	reqs  []engine.Request
	err   error
	codes []engine.ReturnCode
}

func (f *fakeEngine) Call(_ context.Context, req engine.Request) (*engine.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	amt := decimal.RequireFromString("1000.00")
	return &engine.Response{Version: "42.0", Primary: "P-" + string(req.Module), Amount: &amt, Codes: f.codes}, nil
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func (f *fakeEngine) last() engine.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

const inpatientJSON = `{
  "claimid": "IP-1001",
  "from_date": "2025-01-10",
  "thru_date": "2025-01-15",
  "los": 5,
  "bill_type": "111",
  "patient_status": "01",
  "total_charges": 25000.50,
  "patient": {"age": 67, "sex": "F"},
  "billing_provider": {
    "npi": "1234567890",
    "other_id": "012525",
    "additional_data": {"ipsf": {"special_wage_index": 1.25}}
  },
  "principal_dx": {"code": "I21.4", "poa": "Y"},
  "secondary_dxs": [{"code": "D61.03"}],
  "lines": [{"service_date": "2025-01-12", "revenue_code": "0450", "units": 1, "charges": 1200}],
  "modules": ["IPPS", "MSDRG", "MCE"]
}`

func decodeClaim(t *testing.T, js string) *claim.Claim {
	t.Helper()
	c, err := claim.Decode([]byte(js))
	require.NoError(t, err)
	return c
}

func holder(t *testing.T) *refdata.Holder {
	t.Helper()
	cal, err := icd.FiscalYearCalendar(2023, 2026)
	require.NoError(t, err)
	b := refdata.NewBuilder(cal)
	_, err = b.Put(&model.InpatientProvider{
		ProviderCCN:                "012525",
		EffectiveDate:              20241001,
		SpecialWageIndex:           0.95,
		BedSize:                    120,
		NationalProviderIdentifier: "1234567890",
	})
	require.NoError(t, err)
	require.NoError(t, b.AddEquivalence(model.EquivalenceRow{
		System: model.DiagnosisCodes, SourceVersion: "2025", SourceCode: "I214", TargetVersion: "2026", TargetCode: "I2140",
	}))
	return refdata.NewHolder(b.Snapshot())
}

type harness struct {
	orch    *Orchestrator
	engines map[claim.Module]*fakeEngine
}

func newHarness(t *testing.T, hooks *Hooks, mods ...claim.Module) *harness {
	t.Helper()
	reg := engine.NewRegistry()
	h := &harness{engines: make(map[claim.Module]*fakeEngine)}
	for _, m := range mods {
		f := &fakeEngine{}
		h.engines[m] = f
		reg.Register(m, f)
	}
	o, err := New(holder(t), reg, icd.Policy{}, hooks, zerolog.Nop())
	require.NoError(t, err)
	h.orch = o
	return h
}

func TestInvoke_PricerWithoutGrouperOutput(t *testing.T) {
	h := newHarness(t, nil, claim.IPPS, claim.LTCH)
	v, err := h.orch.Prepare(decodeClaim(t, inpatientJSON))
	require.NoError(t, err)

	for _, m := range []claim.Module{claim.IPPS, claim.LTCH} {
		_, err = h.orch.Invoke(context.Background(), m, v)
		var de *DependencyError
		require.True(t, errors.As(err, &de), m)
		assert.Equal(t, claim.MSDRG, de.Missing)
		assert.Zero(t, h.engines[m].calls(), "%s engine must not be called", m)
	}
}

func TestInvoke_PricerWrongUpstreamKind(t *testing.T) {
	h := newHarness(t, nil, claim.IPPS)
	v, err := h.orch.Prepare(decodeClaim(t, inpatientJSON))
	require.NoError(t, err)

	_, err = h.orch.Invoke(context.Background(), claim.IPPS, v, ClaimSourced(claim.HHAG, "1AFK1"))
	var de *DependencyError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, claim.HHAG, de.Got)
	assert.Zero(t, h.engines[claim.IPPS].calls())
}

func TestInvoke_PricerResolvesProviderAndUpstream(t *testing.T) {
	h := newHarness(t, nil, claim.IPPS)
	v, err := h.orch.Prepare(decodeClaim(t, inpatientJSON))
	require.NoError(t, err)

	grouped := NewStageOutput(claim.MSDRG, &engine.Response{Primary: "281", Version: "42.0"})
	out, err := h.orch.Invoke(context.Background(), claim.IPPS, v, grouped)
	require.NoError(t, err)
	assert.Equal(t, "P-IPPS", out.Primary())
	amt, ok := out.Amount()
	require.True(t, ok)
	assert.Equal(t, "1000", amt.String())

	in, ok := h.engines[claim.IPPS].last().Payload.(PricerInput)
	require.True(t, ok)
	assert.Equal(t, "281", in.Upstream[claim.MSDRG].Primary)
	prov := in.Provider.(*model.InpatientProvider)
	assert.Equal(t, 1.25, prov.SpecialWageIndex, "claim override applied")
	assert.Equal(t, 120, prov.BedSize, "other attributes keep stored values")
}

func TestInvoke_IPPSUsesClaimDRG(t *testing.T) {
	h := newHarness(t, nil, claim.IPPS)
	js := strings.Replace(inpatientJSON, `"modules"`, `"additional_data": {"drg": "291"}, "modules"`, 1)
	v, err := h.orch.Prepare(decodeClaim(t, js))
	require.NoError(t, err)

	_, err = h.orch.Invoke(context.Background(), claim.IPPS, v)
	require.NoError(t, err)
	in := h.engines[claim.IPPS].last().Payload.(PricerInput)
	assert.Equal(t, Upstream{Primary: "291", Source: SourceClaim}, in.Upstream[claim.MSDRG])
}

func TestInvoke_ProviderNotFound(t *testing.T) {
	h := newHarness(t, nil, claim.IPPS)
	js := strings.Replace(inpatientJSON, `"012525"`, `"099999"`, 1)
	js = strings.Replace(js, `"1234567890"`, `"1999999999"`, 1)
	v, err := h.orch.Prepare(decodeClaim(t, js))
	require.NoError(t, err)

	_, err = h.orch.Invoke(context.Background(), claim.IPPS, v, ClaimSourced(claim.MSDRG, "291"))
	assert.ErrorIs(t, err, refdata.ErrReferenceDataNotFound)
	assert.Equal(t, "reference_data_not_found", ErrorKind(err))
	assert.Zero(t, h.engines[claim.IPPS].calls())
}

func TestInvoke_RequiredFields(t *testing.T) {
	h := newHarness(t, nil, claim.CMG, claim.OPPS, claim.MSDRG)

	rehab := strings.Replace(inpatientJSON, `"bill_type": "111"`, `"bill_type": "111", "setting": "rehabilitation"`, 1)
	v, err := h.orch.Prepare(decodeClaim(t, rehab))
	require.NoError(t, err)
	_, err = h.orch.Invoke(context.Background(), claim.CMG, v)
	var ve *claim.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "irf_pai", ve.Fields[0].Field)
	assert.Zero(t, h.engines[claim.CMG].calls())

	v, err = h.orch.Prepare(decodeClaim(t, inpatientJSON))
	require.NoError(t, err)
	_, err = h.orch.Invoke(context.Background(), claim.OPPS, v)
	require.True(t, errors.As(err, &ve), "inpatient claim rejected by an outpatient pricer")
	assert.Equal(t, "setting", ve.Fields[0].Rule)

	noDx := strings.Replace(inpatientJSON, `"principal_dx": {"code": "I21.4", "poa": "Y"},`, "", 1)
	v, err = h.orch.Prepare(decodeClaim(t, noDx))
	require.NoError(t, err)
	_, err = h.orch.Invoke(context.Background(), claim.MSDRG, v)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "principal_dx", ve.Fields[0].Field)
	assert.Zero(t, h.engines[claim.MSDRG].calls())
}

func TestRun_OrderAndThreading(t *testing.T) {
	h := newHarness(t, nil, claim.MCE, claim.MSDRG, claim.IPPS)
	res, err := h.orch.Run(context.Background(), decodeClaim(t, inpatientJSON))
	require.NoError(t, err)

	var order []claim.Module
	for _, s := range res.Stages {
		require.NoError(t, s.Err, s.Module)
		order = append(order, s.Module)
	}
	assert.Equal(t, []claim.Module{claim.MCE, claim.MSDRG, claim.IPPS}, order)
	assert.Equal(t, claim.Inpatient, res.Setting)

	in := h.engines[claim.IPPS].last().Payload.(PricerInput)
	assert.Equal(t, "P-MSDRG", in.Upstream[claim.MSDRG].Primary)
	assert.Equal(t, SourceEngine, in.Upstream[claim.MSDRG].Source)
}

func TestRun_FailedUpstreamFailsDependents(t *testing.T) {
	h := newHarness(t, nil, claim.MCE, claim.MSDRG, claim.IPPS)
	h.engines[claim.MSDRG].err = errors.New("grouper offline")

	res, err := h.orch.Run(context.Background(), decodeClaim(t, inpatientJSON))
	require.NoError(t, err)

	_, ok := res.Output(claim.MCE)
	assert.True(t, ok, "sibling stages still run")

	var ee *engine.ExternalEngineError
	require.True(t, errors.As(res.Err(claim.MSDRG), &ee))
	assert.Equal(t, "IP-1001", ee.ClaimID)

	var de *DependencyError
	require.True(t, errors.As(res.Err(claim.IPPS), &de))
	assert.Equal(t, "dependency", ErrorKind(res.Err(claim.IPPS)))
	assert.Zero(t, h.engines[claim.IPPS].calls())
	assert.Equal(t, 2, res.Failed())
}

func TestRun_MissingEngine(t *testing.T) {
	h := newHarness(t, nil, claim.MSDRG)
	res, err := h.orch.Run(context.Background(), decodeClaim(t, inpatientJSON))
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err(claim.MCE), ErrNoEngine)
	assert.NoError(t, res.Err(claim.MSDRG))
}

func TestRun_InvalidClaim(t *testing.T) {
	h := newHarness(t, nil, claim.MSDRG)
	c := decodeClaim(t, inpatientJSON)
	c.ThruDate = claim.NewDate(2024, 1, 1)
	_, err := h.orch.Run(context.Background(), c)
	var ve *claim.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestPrepare_Conversion(t *testing.T) {
	h := newHarness(t, nil, claim.MSDRG)
	js := strings.Replace(inpatientJSON, `"modules"`, `"icd_convert": {"option": "AUTO", "target_version": "2026"}, "modules"`, 1)
	c := decodeClaim(t, js)

	v, err := h.orch.Prepare(c)
	require.NoError(t, err)
	require.NotNil(t, v.Conversion())
	assert.Equal(t, "I21.40", v.Claim().PrincipalDx.Code)
	assert.Equal(t, "I21.4", c.PrincipalDx.Code, "caller's claim untouched")

	notes := v.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, NoteUnconvertible, notes[0].Code)

	_, err = h.orch.Invoke(context.Background(), claim.MSDRG, v)
	require.NoError(t, err)
	assert.Equal(t, "2026", h.engines[claim.MSDRG].last().Payload.(GrouperInput).CodeVersion)
}

func TestPrepare_ConversionFailureKeepsBilledCodes(t *testing.T) {
	h := newHarness(t, nil, claim.MSDRG)
	js := strings.Replace(inpatientJSON, `"modules"`, `"icd_convert": {"option": "AUTO", "target_version": "2040"}, "modules"`, 1)

	v, err := h.orch.Prepare(decodeClaim(t, js))
	require.NoError(t, err)
	assert.Nil(t, v.Conversion())
	assert.Equal(t, "I21.4", v.Claim().PrincipalDx.Code)
	require.Len(t, v.Notes(), 1)
	assert.Equal(t, NoteConversionSkipped, v.Notes()[0].Code)
	assert.Equal(t, engine.SeverityWarning, v.Notes()[0].Severity)
}

func TestHooks_OrderAndMiddleware(t *testing.T) {
	var order []string
	hooks := &Hooks{}
	hooks.OnCapabilities(func(c *Capabilities) {
		order = append(order, "cap1:"+string(c.Module()))
		c.Enable("audited")
		c.Use(func(next engine.Engine) engine.Engine {
			return engine.Func(func(ctx context.Context, req engine.Request) (*engine.Response, error) {
				order = append(order, "mw")
				return next.Call(ctx, req)
			})
		})
	})
	hooks.OnOperations(func(m claim.Module) map[string]Operation {
		order = append(order, "ops:"+string(m))
		return map[string]Operation{
			"principal": func(_ context.Context, v *View) (any, error) {
				c := v.Claim()
				code := c.PrincipalDx.Code
				c.PrincipalDx.Code = "XXX"
				return code, nil
			},
		}
	})
	hooks.OnCapabilities(func(c *Capabilities) { order = append(order, "cap2:"+string(c.Module())) })

	h := newHarness(t, hooks, claim.MSDRG)
	assert.Equal(t, []string{"cap1:MSDRG", "cap2:MSDRG", "ops:MSDRG"}, order, "capability hooks run before operation hooks")

	s, _ := h.orch.Stage(claim.MSDRG)
	g := s.(*Grouper)
	assert.True(t, g.HasCapability("audited"))
	assert.Equal(t, []string{OpProcess, "principal"}, g.Operations())

	v, err := h.orch.Prepare(decodeClaim(t, inpatientJSON))
	require.NoError(t, err)
	got, err := g.Operation(context.Background(), "principal", v)
	require.NoError(t, err)
	assert.Equal(t, "I21.4", got)
	assert.Equal(t, "I21.4", v.Claim().PrincipalDx.Code, "operations cannot alter resolved state")

	_, err = g.Operation(context.Background(), "nope", v)
	assert.ErrorIs(t, err, ErrUnknownOperation)

	order = nil
	_, err = h.orch.Invoke(context.Background(), claim.MSDRG, v)
	require.NoError(t, err)
	assert.Equal(t, []string{"mw"}, order)
}

func TestHooks_Conflicts(t *testing.T) {
	noop := func(context.Context, *View) (any, error) { return nil, nil }
	e := &fakeEngine{}

	dup := &Hooks{}
	dup.OnOperations(func(claim.Module) map[string]Operation { return map[string]Operation{"x": noop} })
	dup.OnOperations(func(claim.Module) map[string]Operation { return map[string]Operation{"x": noop} })
	_, err := NewGrouper(claim.MSDRG, e, dup)
	assert.Error(t, err)

	shadow := &Hooks{}
	shadow.OnOperations(func(claim.Module) map[string]Operation { return map[string]Operation{OpProcess: noop} })
	_, err = NewEditor(claim.MCE, e, shadow)
	assert.Error(t, err)
}

func TestNewStage_FamilyMismatch(t *testing.T) {
	_, err := NewGrouper(claim.IPPS, &fakeEngine{}, nil)
	assert.Error(t, err)
	_, err = NewPricer(claim.IPPS, &fakeEngine{}, nil, nil)
	assert.Error(t, err, "provider-backed pricer needs a resolver")
	_, err = NewPricer(claim.HOSPICE, &fakeEngine{}, nil, nil)
	assert.NoError(t, err)
}

func TestStageOutput_Immutable(t *testing.T) {
	resp := &engine.Response{Primary: "291", Codes: []engine.ReturnCode{{Code: "E1", Severity: engine.SeverityError}}}
	out := NewStageOutput(claim.MSDRG, resp)
	resp.Codes[0].Code = "changed"

	codes := out.Codes()
	codes[0].Code = "mutated"
	assert.Equal(t, "E1", out.Codes()[0].Code)
	assert.True(t, out.HasErrors())
	_, ok := out.Amount()
	assert.False(t, ok)
}

func TestDependencies_Table(t *testing.T) {
	reqs := Dependencies(claim.OPPS)
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].Optional)
	assert.Empty(t, Dependencies(claim.SNF))
	assert.Empty(t, Dependencies(claim.MSDRG))

	c := &claim.Claim{Lines: []claim.LineItem{{RevenueCode: "0023", HCPCS: "1AFK1"}}}
	_, err := satisfy(claim.HHA, c, nil)
	require.NoError(t, err, "HIPPS on a 0023 line satisfies HHAG")
	_, err = satisfy(claim.IRF, c, nil)
	assert.Error(t, err)
	_, err = satisfy(claim.OPPS, c, nil)
	assert.NoError(t, err)
}
