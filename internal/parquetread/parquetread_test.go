package parquetread

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/myelin/internal/model"
)

func writeFixture(t *testing.T, rows []model.InpatientProvider) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ipsf.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := parquet.NewGenericWriter[model.InpatientProvider](f)
	_, err = w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestReaderEach(t *testing.T) {
	path := writeFixture(t, []model.InpatientProvider{
		{ProviderCCN: "012525", EffectiveDate: 20240101, BedSize: 120},
		{ProviderCCN: "012525", EffectiveDate: 20241001, BedSize: 130},
		{ProviderCCN: "330101", EffectiveDate: 20240101},
	})

	r, err := Open[model.InpatientProvider](path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, int64(3), r.NumRows())
	require.NoError(t, ValidateSchema(r.Schema(), model.Inpatient))

	var ccns []string
	n, err := r.Each(func(_ int64, p *model.InpatientProvider) error {
		ccns = append(ccns, p.ProviderCCN)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []string{"012525", "012525", "330101"}, ccns)
}

type wrongShape struct {
	ProviderCCN string `parquet:"provider_ccn"`
	Hospital    string `parquet:"hospital_name"`
}

func TestValidateSchemaRejects(t *testing.T) {
	err := ValidateSchema(parquet.SchemaOf(wrongShape{}), model.Inpatient)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hospital_name")

	type noDate struct {
		ProviderCCN string `parquet:"provider_ccn"`
	}
	err = ValidateSchema(parquet.SchemaOf(noDate{}), model.Outpatient)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "effective_date")

	type noID struct {
		EffectiveDate int `parquet:"effective_date"`
	}
	err = ValidateSchema(parquet.SchemaOf(noID{}), model.Inpatient)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identifier")
}
