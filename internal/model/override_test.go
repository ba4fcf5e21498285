package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedProvider() *InpatientProvider {
	return &InpatientProvider{
		ProviderCCN:                "012525",
		EffectiveDate:              20241001,
		ProviderType:               "00",
		CBSAWILocation:             "10500",
		SpecialWageIndex:           0.95,
		OperatingCostToChargeRatio: 0.31,
		BedSize:                    120,
		NationalProviderIdentifier: "1234567890",
	}
}

func TestApplyOverride_ReplacesOnlyNamedAttribute(t *testing.T) {
	ov, err := ParseOverride(Inpatient, map[string]any{"special_wage_index": 1.25})
	require.NoError(t, err)

	stored := storedProvider()
	got, err := ApplyOverride(stored, ov)
	require.NoError(t, err)

	resolved := got.(*InpatientProvider)
	assert.Equal(t, 1.25, resolved.SpecialWageIndex)

	want := *stored
	want.SpecialWageIndex = 1.25
	assert.Equal(t, want, *resolved)
	assert.Equal(t, 0.95, stored.SpecialWageIndex, "stored record must not change")
}

func TestParseOverride_UnknownAttribute(t *testing.T) {
	_, err := ParseOverride(Inpatient, map[string]any{"wage_idx": 1.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wage_idx")
}

func TestParseOverride_WrongVariantAttribute(t *testing.T) {
	// device_cost_to_charge_ratio only exists on the outpatient file.
	_, err := ParseOverride(Inpatient, map[string]any{"device_cost_to_charge_ratio": 0.2})
	require.Error(t, err)

	ov, err := ParseOverride(Outpatient, map[string]any{"device_cost_to_charge_ratio": 0.2})
	require.NoError(t, err)
	assert.Equal(t, []string{"device_cost_to_charge_ratio"}, ov.Keys())
}

func TestParseOverride_TypeChecks(t *testing.T) {
	_, err := ParseOverride(Inpatient, map[string]any{"special_wage_index": "1.25"})
	assert.Error(t, err, "text for a real attribute")

	_, err = ParseOverride(Inpatient, map[string]any{"bed_size": 10.5})
	assert.Error(t, err, "fraction for an int attribute")

	_, err = ParseOverride(Inpatient, map[string]any{"provider_type": 7.0})
	assert.Error(t, err, "number for a text attribute")

	ov, err := ParseOverride(Inpatient, map[string]any{"bed_size": 200.0, "provider_type": "07"})
	require.NoError(t, err)
	got, err := ApplyOverride(storedProvider(), ov)
	require.NoError(t, err)
	assert.Equal(t, 200, got.(*InpatientProvider).BedSize)
	assert.Equal(t, "07", got.(*InpatientProvider).ProviderType)
}

func TestApplyOverride_VariantMismatch(t *testing.T) {
	ov, err := ParseOverride(Outpatient, map[string]any{"special_wage_index": 1.1})
	require.NoError(t, err)
	_, err = ApplyOverride(storedProvider(), ov)
	assert.Error(t, err)
}

func TestApplyOverride_ZeroOverrideCopies(t *testing.T) {
	stored := storedProvider()
	got, err := ApplyOverride(stored, Override{})
	require.NoError(t, err)
	assert.Equal(t, *stored, *got.(*InpatientProvider))
	assert.NotSame(t, stored, got)
}
