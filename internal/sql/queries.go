// Package sql embeds the schema migrations and the queries run against it.
package sql

import (
	"embed"
)

// Migrations holds migrations/*.sql, applied in filename order.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/register_ref_file.sql
var RegisterRefFile string

//go:embed queries/lookup_ref_file.sql
var LookupRefFile string

//go:embed queries/mark_ref_file_applied.sql
var MarkRefFileApplied string

//go:embed queries/merge_provider_records.sql
var MergeProviderRecords string

//go:embed queries/count_staged_distinct.sql
var CountStagedDistinct string

//go:embed queries/delete_staging_batch.sql
var DeleteStagingBatch string

//go:embed queries/delete_file_conversions.sql
var DeleteFileConversions string

//go:embed queries/delete_file_equivalences.sql
var DeleteFileEquivalences string

//go:embed queries/select_provider_records.sql
var SelectProviderRecords string

//go:embed queries/select_conversions.sql
var SelectConversions string

//go:embed queries/select_equivalences.sql
var SelectEquivalences string

//go:embed queries/analyze_reference.sql
var AnalyzeReference string
