package publipostage

import (
	"regexp"
	"strconv"
	"strings"
)

// filenameToken matches {name} placeholders in filename patterns.
// Filenames use single braces on purpose: double braces belong to the
// rich-text body and the two syntaxes must not collide.
var filenameToken = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// unsafeFilenameChars matches every character stripped during sanitization.
var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// underscoreRuns collapses repeated underscores left by sanitization.
var underscoreRuns = regexp.MustCompile(`_+`)

// fallbackFilename is used when sanitization removes every character.
const fallbackFilename = "document"

// ResolveFilename builds a filesystem-safe output filename from a pattern
// and a row. {name} tokens resolve against row keys; {index} resolves to
// the 1-based row index. After substitution, every character outside
// [A-Za-z0-9_-] becomes an underscore and runs are collapsed. The result is
// never empty: a fully stripped name falls back to "document" plus the row
// index, which also keeps archive entries unique. A ".pdf" suffix is
// guaranteed.
func ResolveFilename(pattern string, row Row, index int) string {
	name := strings.TrimSpace(pattern)
	if name == "" {
		name = fallbackFilename
	}

	name = strings.ReplaceAll(name, "{index}", strconv.Itoa(index))

	name = filenameToken.ReplaceAllStringFunc(name, func(token string) string {
		key := filenameToken.FindStringSubmatch(token)[1]
		value, ok := row[key]
		if !ok {
			return token
		}
		return displayString(value)
	})

	name = strings.TrimSuffix(name, ".pdf")
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = underscoreRuns.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if name == "" {
		name = fallbackFilename + "_" + strconv.Itoa(index)
	}

	return name + ".pdf"
}
