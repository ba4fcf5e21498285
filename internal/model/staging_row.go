package model

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/gyeh/myelin/internal/normalize"
)

// ProviderStagingRow is the DB-ready form of a provider record. The full
// attribute set travels as JSON; identifier and window columns are broken
// out for indexing.
type ProviderStagingRow struct {
	BuildBatchID    uuid.UUID
	RefFileID       int64
	Variant         Variant
	RecordKey       string
	ProviderCCN     string
	NPI             string
	EffectiveDate   int
	TerminationDate int
	Attrs           []byte
	RecordHash      []byte
}

// NewProviderStagingRow serializes r and computes its content hash.
func NewProviderStagingRow(r ProviderRecord, batchID uuid.UUID, refFileID int64) (*ProviderStagingRow, error) {
	attrs, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return &ProviderStagingRow{
		BuildBatchID:    batchID,
		RefFileID:       refFileID,
		Variant:         r.Variant(),
		RecordKey:       RecordKey(r),
		ProviderCCN:     r.CCN(),
		NPI:             r.NPI(),
		EffectiveDate:   r.Effective(),
		TerminationDate: r.Termination(),
		Attrs:           attrs,
		RecordHash:      RecordHash(r),
	}, nil
}

// RecordHash is a stable content hash over every attribute of r.
func RecordHash(r ProviderRecord) []byte {
	b, _ := json.Marshal(r)
	var fields map[string]any
	_ = json.Unmarshal(b, &fields)
	flat := make(map[string]string, len(fields))
	for k, v := range fields {
		flat[k] = jsonScalar(v)
	}
	return normalize.RowHash(flat)
}

func jsonScalar(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// StagingColumns returns the ordered column names for COPY into
// ref.stage_provider_records.
func StagingColumns() []string {
	return []string{
		"build_batch_id",
		"ref_file_id",
		"variant",
		"record_key",
		"provider_ccn",
		"npi",
		"effective_date",
		"termination_date",
		"attrs",
		"record_hash",
	}
}

// CopyValues returns the row values in the same order as StagingColumns(),
// suitable for pgx CopyFromSource.
func (r *ProviderStagingRow) CopyValues() []any {
	return []any{
		r.BuildBatchID,
		r.RefFileID,
		string(r.Variant),
		r.RecordKey,
		r.ProviderCCN,
		r.NPI,
		r.EffectiveDate,
		r.TerminationDate,
		r.Attrs,
		r.RecordHash,
	}
}
