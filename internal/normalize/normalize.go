package normalize

import "strings"

// Values pairs a positional CSV row with its column names. Values are trimmed
// and empty cells are left out so decoders fall back to zero values.
// Columns beyond the end of a short row are treated as empty.
func Values(names []string, row []string) map[string]any {
	out := make(map[string]any, len(names))
	for i, name := range names {
		if i >= len(row) {
			break
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			continue
		}
		out[name] = v
	}
	return out
}
