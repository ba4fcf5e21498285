package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/myelin/internal/model"
)

func ipsf(ccn string, effective int) *model.InpatientProvider {
	return &model.InpatientProvider{
		ProviderCCN:      ccn,
		EffectiveDate:    effective,
		ProviderType:     "00",
		CBSAWILocation:   "10500",
		SpecialWageIndex: 0.9,
	}
}

func TestWriteThenCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipsf.parquet")
	recs := []model.ProviderRecord{
		ipsf("012525", 20240101),
		ipsf("012525", 20241001),
		ipsf("012526", 20240101),
	}

	require.NoError(t, write[model.InpatientProvider](path, recs))

	rows, providers, err := check[model.InpatientProvider](path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)
	assert.Equal(t, 2, providers)
}

func TestWriteRejectsOtherVariant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opsf.parquet")
	err := write[model.OutpatientProvider](path, []model.ProviderRecord{ipsf("012525", 20240101)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not model.OutpatientProvider")
}

func TestPickOnePerProviderFirst(t *testing.T) {
	recs := []model.ProviderRecord{
		ipsf("012525", 20240101),
		ipsf("012525", 20241001),
		ipsf("012526", 20240101),
		ipsf("012527", 20240101),
	}

	got := pick(recs, 3)
	require.Len(t, got, 3)
	var keys []string
	for _, r := range got {
		keys = append(keys, model.RecordKey(r))
	}
	assert.Equal(t, []string{"012525", "012526", "012527"}, keys)

	all := pick(recs, 10)
	require.Len(t, all, 4)
	assert.Equal(t, 20241001, all[3].Effective())
}
