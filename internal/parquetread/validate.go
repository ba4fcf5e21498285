package parquetread

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/myelin/internal/model"
)

// ValidateSchema checks that a provider file carries an effective date, at
// least one provider identifier, and no columns outside the variant's
// attribute set.
func ValidateSchema(schema *parquet.Schema, v model.Variant) error {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		name := strings.ToLower(field.Name())
		if _, ok := model.LookupAttribute(v, name); !ok {
			return fmt.Errorf("unknown %s column: %s", v, name)
		}
		columns[name] = true
	}

	if !columns["effective_date"] {
		return fmt.Errorf("missing required column: effective_date")
	}
	if !columns["provider_ccn"] && !columns["national_provider_identifier"] {
		return fmt.Errorf("no identifier columns found; need provider_ccn or national_provider_identifier")
	}
	return nil
}
