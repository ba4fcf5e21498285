package claim

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/myelin/internal/model"
)

const inpatientClaim = `{
  "claimid": "IP-1001",
  "from_date": "2025-01-10",
  "thru_date": "2025-01-15",
  "los": 5,
  "bill_type": "111",
  "patient_status": "01",
  "total_charges": 25000.50,
  "patient": {"age": 67, "sex": "F", "date_of_birth": "1957-06-01"},
  "billing_provider": {
    "npi": "1234567890",
    "other_id": "012525",
    "additional_data": {"ipsf": {"special_wage_index": 1.25}}
  },
  "principal_dx": {"code": "I21.4", "poa": "Y"},
  "secondary_dxs": [{"code": "D61.03", "poa": "q"}, {"code": "E11.9"}],
  "inpatient_pxs": [{"code": "02703ZZ"}],
  "lines": [{"service_date": "2025-01-12", "revenue_code": "0450", "units": 1, "charges": 1200}],
  "additional_data": {"ipps": {"review_code": "00", "lifetime_reserve_days": 0}},
  "modules": ["MSDRG", "IPPS"]
}`

func TestDecode_Inpatient(t *testing.T) {
	c, err := Decode([]byte(inpatientClaim))
	require.NoError(t, err)

	assert.Equal(t, "IP-1001", c.ClaimID)
	assert.Equal(t, "2025-01-15", c.ThruDate.Format("2006-01-02"))
	assert.True(t, c.TotalCharges.Equal(decimal.RequireFromString("25000.50")))
	assert.Equal(t, POABlank, c.SecondaryDxs[0].POA, "unknown POA collapses to blank")
	assert.Equal(t, Inpatient, c.ResolveSetting())
	assert.Equal(t, []Module{MSDRG, IPPS}, c.Modules)

	ov := c.BillingProvider.AdditionalData.Override(model.Inpatient)
	v, ok := ov.Value("special_wage_index")
	require.True(t, ok)
	assert.Equal(t, 1.25, v)
	assert.True(t, c.BillingProvider.AdditionalData.Override(model.Outpatient).IsZero())

	require.NotNil(t, c.AdditionalData.IPPS)
	assert.Equal(t, "00", c.AdditionalData.IPPS.ReviewCode)

	dx := c.Diagnoses()
	require.Len(t, dx, 3)
	assert.Equal(t, "I21.4", dx[0].Code)
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	for _, f := range verr.Fields {
		if f.Field == field {
			return
		}
	}
	t.Fatalf("no failure for %q in %v", field, verr.Fields)
}

func mutate(old, new string) []byte {
	return []byte(strings.Replace(inpatientClaim, old, new, 1))
}

func TestDecode_DateRules(t *testing.T) {
	_, err := Decode(mutate(`"from_date": "2025-01-10"`, `"from_date": "2025-01-20"`))
	requireValidation(t, err, "from_date")

	_, err = Decode(mutate(`"service_date": "2025-01-12"`, `"service_date": "2025-02-01"`))
	requireValidation(t, err, "lines[0].service_date")

	_, err = Decode(mutate(`"thru_date": "2025-01-15",`, ``))
	requireValidation(t, err, "thru_date")
}

func TestDecode_AmountsAndCounts(t *testing.T) {
	_, err := Decode(mutate(`"total_charges": 25000.50`, `"total_charges": -1`))
	requireValidation(t, err, "total_charges")

	_, err = Decode(mutate(`"los": 5`, `"los": -2`))
	requireValidation(t, err, "los")

	_, err = Decode(mutate(`"modules": ["MSDRG", "IPPS"]`, `"modules": ["MSDRG", "NOPE"]`))
	requireValidation(t, err, "modules[1]")
}

func TestDecode_RejectsUnknownAdditionalData(t *testing.T) {
	_, err := Decode(mutate(`"ipps": {"review_code": "00", "lifetime_reserve_days": 0}`, `"ippz": {}`))
	require.Error(t, err)
	requireValidation(t, err, "")

	_, err = Decode(mutate(`"lifetime_reserve_days": 0`, `"lifetime_reserve_dayz": 0`))
	require.Error(t, err)
}

func TestDecode_RejectsUnknownOverride(t *testing.T) {
	_, err := Decode(mutate(`{"special_wage_index": 1.25}`, `{"special_wage_idx": 1.25}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "special_wage_idx")

	_, err = Decode(mutate(`"ipsf": {`, `"xpsf": {`))
	require.Error(t, err)
}

func TestValidate_IRFPAI(t *testing.T) {
	c, err := Decode([]byte(inpatientClaim))
	require.NoError(t, err)
	c.IRFPAI = &IRFPAI{AssessmentSystem: "MDS", TransactionType: 3, ImpairmentAdmitGroupCode: "0001.1"}
	err = c.Validate()
	requireValidation(t, err, "irf_pai.assessment_system")
	requireValidation(t, err, "irf_pai.transaction_type")

	c.IRFPAI = &IRFPAI{AssessmentSystem: "IRF-PAI", TransactionType: 1, ImpairmentAdmitGroupCode: "0001.1"}
	require.NoError(t, c.Validate())
	c.Setting = ""
	c.BillType = "111"
	assert.Equal(t, Rehabilitation, c.ResolveSetting())
}

func TestValidate_ESRDRequiresPPA(t *testing.T) {
	c, err := Decode([]byte(inpatientClaim))
	require.NoError(t, err)
	c.AdditionalData.ESRD = &ESRDData{ECTChoice: "P"}
	requireValidation(t, c.Validate(), "additional_data.esrd.ppa_adjustment")

	ppa := 0.98
	c.AdditionalData.ESRD.PPAAdjustment = &ppa
	require.NoError(t, c.Validate())
}

func TestClone_IsDeep(t *testing.T) {
	c, err := Decode([]byte(inpatientClaim))
	require.NoError(t, err)

	cp := c.Clone()
	cp.PrincipalDx.Code = "Z00.00"
	cp.SecondaryDxs[0].Code = "X"
	cp.Lines[0].Units = 9
	cp.Modules[0] = HHAG
	cp.AdditionalData.IPPS.ReviewCode = "11"

	assert.Equal(t, "I21.4", c.PrincipalDx.Code)
	assert.Equal(t, "D61.03", c.SecondaryDxs[0].Code)
	assert.Equal(t, 1, c.Lines[0].Units)
	assert.Equal(t, MSDRG, c.Modules[0])
	assert.Equal(t, "00", c.AdditionalData.IPPS.ReviewCode)
}

func TestResolveSetting_BillType(t *testing.T) {
	cases := map[string]Setting{
		"0131": Outpatient,
		"721":  Dialysis,
		"329":  HomeHealth,
		"812":  Hospice,
		"211":  SkilledNursing,
		"999":  "",
	}
	for bt, want := range cases {
		c := &Claim{BillType: bt}
		assert.Equal(t, want, c.ResolveSetting(), bt)
	}
	c := &Claim{BillType: "131", Setting: Hospice}
	assert.Equal(t, Hospice, c.ResolveSetting())
}

func TestParseModule(t *testing.T) {
	m, err := ParseModule("ipf")
	require.NoError(t, err)
	assert.Equal(t, PSYCH, m)
	assert.Equal(t, Pricer, m.Family())
	assert.Equal(t, Editor, IOCE.Family())
	assert.Less(t, CMG.Rank(), IPPS.Rank())

	_, err = ParseModule("XYZ")
	assert.Error(t, err)
}
