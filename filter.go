package publipostage

// ApplyFilter narrows rows to the subset eligible for batch generation.
// Returns the filtered rows plus (total, kept) counts for caller reporting.
//
// A disabled spec returns a copy of all rows in their original order. An
// enabled spec keeps a row only when its filter column is exactly boolean
// true or numeric 1. String "true", 0, false, and missing keys all exclude
// the row; this narrowing is deliberate, not a coercion bug, because the
// data source serializes boolean columns as either bool or number.
func ApplyFilter(rows []Row, spec FilterSpec) (filtered []Row, total, kept int) {
	total = len(rows)

	if !spec.Enabled {
		filtered = make([]Row, len(rows))
		copy(filtered, rows)
		return filtered, total, total
	}

	filtered = make([]Row, 0, len(rows))
	for _, row := range rows {
		if filterMatch(row[spec.Column]) {
			filtered = append(filtered, row)
		}
	}
	return filtered, total, len(filtered)
}

// filterMatch reports whether a cell value marks its row for generation.
func filterMatch(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v == 1
	case int:
		return v == 1
	default:
		return false
	}
}
