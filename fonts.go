package publipostage

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Font files looked up in the fonts directory. Both woff2 and woff are
// embedded when present so Chrome can pick the format it prefers.
var fontFiles = []string{
	"Marianne-Regular.woff2",
	"Marianne-Regular.woff",
	"Marianne-Bold.woff2",
	"Marianne-Bold.woff",
}

// LoadFontCSS reads the Marianne font files from dir and returns @font-face
// CSS with the fonts embedded as base64 data URIs, so rendered documents
// never depend on system fonts. A missing directory or missing files are
// not errors: the stylesheet falls back to Arial/Helvetica.
func LoadFontCSS(dir string) string {
	if dir == "" {
		return ""
	}

	uris := make(map[string]string, len(fontFiles))
	for _, name := range fontFiles {
		data, err := os.ReadFile(filepath.Join(dir, name)) // #nosec G304 -- operator-configured directory
		if err != nil {
			continue
		}
		mime := "font/woff"
		if strings.HasSuffix(name, ".woff2") {
			mime = "font/woff2"
		}
		uris[name] = "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	}

	if len(uris) == 0 {
		return ""
	}

	var css strings.Builder
	writeFontFace(&css, 400, uris["Marianne-Regular.woff2"], uris["Marianne-Regular.woff"])
	writeFontFace(&css, 700, uris["Marianne-Bold.woff2"], uris["Marianne-Bold.woff"])
	return css.String()
}

// writeFontFace appends one @font-face rule for the given weight.
func writeFontFace(css *strings.Builder, weight int, woff2, woff string) {
	var sources []string
	if woff2 != "" {
		sources = append(sources, fmt.Sprintf("url('%s') format('woff2')", woff2))
	}
	if woff != "" {
		sources = append(sources, fmt.Sprintf("url('%s') format('woff')", woff))
	}
	if len(sources) == 0 {
		return
	}

	fmt.Fprintf(css, `@font-face {
    font-family: 'Marianne';
    src: %s;
    font-weight: %d;
    font-style: normal;
}
`, strings.Join(sources, ",\n         "), weight)
}
