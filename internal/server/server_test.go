package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/myelin/internal/claim"
	"github.com/gyeh/myelin/internal/engine"
	"github.com/gyeh/myelin/internal/icd"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/pipeline"
	"github.com/gyeh/myelin/internal/refdata"
)

const claimJSON = `{
  "claimid": "IP-2001",
  "from_date": "2025-01-10",
  "thru_date": "2025-01-15",
  "los": 5,
  "bill_type": "111",
  "patient_status": "01",
  "total_charges": 18000,
  "patient": {"age": 71, "sex": "M"},
  "billing_provider": {"npi": "1234567890", "other_id": "012525"},
  "principal_dx": {"code": "I21.4", "poa": "Y"},
  "lines": [{"service_date": "2025-01-12", "revenue_code": "0450", "units": 1, "charges": 1200}],
  "modules": ["MSDRG", "IPPS"]
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cal, err := icd.FiscalYearCalendar(2023, 2026)
	require.NoError(t, err)
	b := refdata.NewBuilder(cal)
	_, err = b.Put(&model.InpatientProvider{ProviderCCN: "012525", EffectiveDate: 20241001, BedSize: 120, NationalProviderIdentifier: "1234567890"})
	require.NoError(t, err)
	require.NoError(t, b.AddEquivalence(model.EquivalenceRow{
		System: model.DiagnosisCodes, SourceVersion: "2025", SourceCode: "I214", TargetVersion: "2026", TargetCode: "I2140",
	}))
	holder := refdata.NewHolder(b.Snapshot())

	reg := engine.NewRegistry()
	answer := func(primary string) engine.Engine {
		return engine.Func(func(_ context.Context, req engine.Request) (*engine.Response, error) {
			amt := decimal.RequireFromString("9500.25")
			return &engine.Response{Version: "42.0", Primary: primary, Amount: &amt}, nil
		})
	}
	reg.Register(claim.MSDRG, answer("281"))
	reg.Register(claim.IPPS, answer("IPPS-OK"))

	orch, err := pipeline.New(holder, reg, icd.Policy{}, nil, zerolog.Nop())
	require.NoError(t, err)
	srv := httptest.NewServer(New(orch, holder, zerolog.Nop()).Router())
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestProcess(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/v1/claims/process", "application/json", strings.NewReader(claimJSON))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "IP-2001", body["claim_id"])
	stages := body["stages"].([]any)
	require.Len(t, stages, 2)
	first := stages[0].(map[string]any)
	assert.Equal(t, "MSDRG", first["module"])
	second := stages[1].(map[string]any)
	assert.Equal(t, "IPPS-OK", second["output"].(map[string]any)["primary"])
}

func TestProcessInvalidClaim(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/v1/claims/process", "application/json", strings.NewReader(`{"claimid": "x"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "validation", body["error"].(map[string]any)["kind"])
}

func TestConvert(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/v1/claims/convert?target=2026", "application/json", strings.NewReader(claimJSON))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	res := body["result"].(map[string]any)
	assert.Equal(t, "2025", res["billed_version"])
	mappings := res["mappings"].([]any)
	require.NotEmpty(t, mappings)
	assert.Equal(t, "I21.40", mappings[0].(map[string]any)["chosen"])
	dx := body["claim"].(map[string]any)["principal_dx"].(map[string]any)
	assert.Equal(t, "I21.40", dx["code"])
}

func TestConvertWithoutDirective(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/v1/claims/convert", "application/json", strings.NewReader(claimJSON))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestProvider(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/providers/ipsf/12525?date=2025-02-01")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, float64(120), body["record"].(map[string]any)["bed_size"])

	resp, err = http.Get(srv.URL + "/v1/providers/ipsf/1234567890?date=2025-02-01")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/v1/providers/ipsf/012525?date=2024-02-01")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "reference_data_not_found", decodeBody(t, resp)["error"].(map[string]any)["kind"])

	resp, err = http.Get(srv.URL + "/v1/providers/xsf/012525")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/v1/providers/opsf/012525?date=01-02-2025")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["records"].(map[string]any)["ipsf"])
	assert.Equal(t, float64(1), body["edges"])
}
