package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributes_ColumnLayout(t *testing.T) {
	ip := Attributes(Inpatient)
	require.Len(t, ip, 68)
	assert.Equal(t, "provider_ccn", ip[0].Name)
	assert.Equal(t, "special_wage_index", ip[33].Name)
	assert.Equal(t, KindReal, ip[33].Kind)
	assert.Equal(t, "national_provider_identifier", ip[61].Name)
	assert.Equal(t, "pass_through_amount_for_supply_chain", ip[67].Name)

	op := Attributes(Outpatient)
	require.Len(t, op, 33)
	assert.Equal(t, "national_provider_identifier", op[2].Name)
	assert.Equal(t, KindInt, op[5].Kind, "termination_date")
	assert.Equal(t, "locality_code", op[32].Name)
}

func TestDecodeRecord_FromText(t *testing.T) {
	rec, err := DecodeRecord(Outpatient, map[string]any{
		"provider_ccn":       "050001",
		"effective_date":     "20240101",
		"special_wage_index": "1.0432",
		"carrier_code":       "01112",
	})
	require.NoError(t, err)
	op := rec.(*OutpatientProvider)
	assert.Equal(t, 20240101, op.EffectiveDate)
	assert.InDelta(t, 1.0432, op.SpecialWageIndex, 1e-9)
	assert.Equal(t, "01112", op.CarrierCode)
}

func TestDecodeRecord_UnknownColumn(t *testing.T) {
	_, err := DecodeRecord(Outpatient, map[string]any{"bogus": "1"})
	assert.Error(t, err)
}

func TestTerminationDay(t *testing.T) {
	for _, v := range []int{0, 19000101, 20991231} {
		_, ok := TerminationDay(InpatientProvider{TerminationDate: v})
		assert.False(t, ok, "termination %d is open-ended", v)
	}
	day, ok := TerminationDay(InpatientProvider{TerminationDate: 20250630})
	require.True(t, ok)
	assert.Equal(t, "2025-06-30", day.Format("2006-01-02"))
}

func TestRecordHash_ChangesWithContent(t *testing.T) {
	a := storedProvider()
	b := storedProvider()
	assert.Equal(t, RecordHash(a), RecordHash(b))
	b.SpecialWageIndex = 1.01
	assert.NotEqual(t, RecordHash(a), RecordHash(b))
}
