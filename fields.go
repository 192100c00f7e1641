package publipostage

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// fieldToken matches {{name}} placeholders in template bodies.
// Names follow Grist column IDs: letters, digits, underscore.
var fieldToken = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// ResolveFields substitutes {{name}} placeholders in text with the row's
// values. Substitution is a single scan over text: replaced values are never
// rescanned, so row values containing {{...}}-shaped text stay inert.
// Placeholders with no matching row key are left verbatim so missing fields
// stay visible in the output. A nil value substitutes to the empty string.
func ResolveFields(text string, row Row) string {
	if text == "" || len(row) == 0 {
		return text
	}

	return fieldToken.ReplaceAllStringFunc(text, func(token string) string {
		name := fieldToken.FindStringSubmatch(token)[1]
		value, ok := row[name]
		if !ok {
			return token
		}
		return displayString(value)
	})
}

// Unix-timestamp detection window, mirroring what the data source emits for
// date columns: 2000-01-01 in seconds up to far-future millisecond values.
const (
	minTimestamp = 946684800
	maxTimestamp = 4_000_000_000_000
	msThreshold  = 10_000_000_000 // values above this are milliseconds
)

// displayString coerces a row value to the string shown in documents.
func displayString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if isTimestamp(v) {
			return formatDate(v)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		if isTimestamp(float64(v)) {
			return formatDate(float64(v))
		}
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// isTimestamp reports whether a numeric value looks like a Unix timestamp.
// Date columns arrive as plain numbers; anything in the window is rendered
// as a date rather than a raw epoch value.
func isTimestamp(v float64) bool {
	return v >= minTimestamp && v <= maxTimestamp
}

// formatDate renders a Unix timestamp as dd/mm/yyyy.
func formatDate(v float64) string {
	secs := int64(v)
	if v > msThreshold {
		secs = int64(v / 1000)
	}
	return time.Unix(secs, 0).UTC().Format("02/01/2006")
}
