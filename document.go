package publipostage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"regexp"
	"strings"
)

// Editor output scrubbing. Quill inlines rgb() colors picked from the
// toolbar palette; they override the document palette in print so they are
// stripped, along with the empty style attributes left behind.
var (
	inlineColorAttr = regexp.MustCompile(`style="color:\s*rgb\([^)]+\);?"`)
	emptyStyleAttr  = regexp.MustCompile(`\s*style=""\s*`)
)

// headerTemplate renders the document header: logo on the left, service
// name on the right, separated from the content by a blue rule.
var headerTemplate = template.Must(template.New("header").Parse(`<div style="display: table; width: 100%; margin-bottom: 20pt;">
    <div style="display: table-row;">
        <div style="display: table-cell; width: 50%; vertical-align: top;">
            {{if .Logo}}<img src="{{.Logo}}" alt="Logo" style="width: 80pt; height: auto; display: block;">{{end}}
        </div>
        <div style="display: table-cell; width: 50%; vertical-align: top; text-align: right;">
            {{if .ServiceName}}<div style="font-family: Marianne, sans-serif; font-size: 10pt; line-height: 1.3;">{{.ServiceName}}</div>{{end}}
        </div>
    </div>
</div>
<hr style="border: none; border-top: 2pt solid #000091; margin: 15pt 0 20pt 0; padding: 0;" />
`))

// signatureTemplate renders the signature image anchored after the content.
var signatureTemplate = template.Must(template.New("signature").Parse(`<div class="signature-container" style="margin-top: 10pt; text-align: right;">
    <img src="{{.Signature}}" alt="Signature" style="width: 100pt; height: auto; display: inline-block;">
</div>
`))

// headerData feeds headerTemplate. Logo is a validated data URI, marked
// template.URL so html/template does not reject the data: scheme.
type headerData struct {
	Logo        template.URL
	ServiceName template.HTML
}

// BuildDocument composes the final standalone HTML document for a render
// request: scrubbed body markup wrapped with the header, signature, base
// stylesheet, embedded fonts, and the request's user CSS (last, so it can
// override). Asset data URIs are validated here; a malformed logo or
// signature fails the row with ErrAssetDecode before the browser sees it.
func BuildDocument(req RenderRequest, fontCSS string) (string, error) {
	if err := validateDataURI("logo", req.Assets.Logo); err != nil {
		return "", err
	}
	if err := validateDataURI("signature", req.Assets.Signature); err != nil {
		return "", err
	}

	body := inlineColorAttr.ReplaceAllString(req.Body, "")
	body = emptyStyleAttr.ReplaceAllString(body, " ")

	header, err := buildHeader(req.Assets)
	if err != nil {
		return "", err
	}
	signature, err := buildSignature(req.Assets)
	if err != nil {
		return "", err
	}

	var doc strings.Builder
	doc.WriteString(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="UTF-8">
<title>Document de publipostage</title>
<style>
`)
	doc.WriteString(fontCSS)
	doc.WriteString(baseStylesheet)
	doc.WriteString(sanitizeCSS(req.CSS))
	doc.WriteString(`</style>
</head>
<body>
`)
	doc.WriteString(header)
	doc.WriteString(`<div class="contenu">
`)
	doc.WriteString(body)
	doc.WriteString(signature)
	doc.WriteString(`</div>
</body>
</html>`)

	return doc.String(), nil
}

// buildHeader renders the header block, or "" when there is neither a logo
// nor a service name.
func buildHeader(assets Assets) (string, error) {
	if assets.Logo == "" && assets.ServiceName == "" {
		return "", nil
	}

	data := headerData{Logo: template.URL(assets.Logo)} // #nosec G203 -- validated data URI
	if assets.ServiceName != "" {
		lines := strings.Split(strings.ReplaceAll(assets.ServiceName, "\r\n", "\n"), "\n")
		for i, line := range lines {
			lines[i] = template.HTMLEscapeString(line)
		}
		data.ServiceName = template.HTML(strings.Join(lines, "<br>")) // #nosec G203 -- lines escaped above
	}

	var buf bytes.Buffer
	if err := headerTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering header: %w", err)
	}
	return buf.String(), nil
}

// buildSignature renders the signature block, or "" when no signature is set.
func buildSignature(assets Assets) (string, error) {
	if assets.Signature == "" {
		return "", nil
	}

	var buf bytes.Buffer
	data := struct{ Signature template.URL }{template.URL(assets.Signature)} // #nosec G203 -- validated data URI
	if err := signatureTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering signature: %w", err)
	}
	return buf.String(), nil
}

// validateDataURI checks that an asset payload is a well-formed base64 data
// URI. Empty payloads are fine (asset not provided).
func validateDataURI(name, uri string) error {
	if uri == "" {
		return nil
	}
	if !strings.HasPrefix(uri, "data:") {
		return fmt.Errorf("%w: %s is not a data URI", ErrAssetDecode, name)
	}
	_, payload, found := strings.Cut(uri, ";base64,")
	if !found {
		return fmt.Errorf("%w: %s has no base64 payload", ErrAssetDecode, name)
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAssetDecode, name, err)
	}
	return nil
}

// sanitizeCSS escapes sequences that could close the <style> block early.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// baseStylesheet is the document palette shared by every generated PDF.
// The ql-* classes cover the formats the Quill editor emits.
const baseStylesheet = `
body {
    font-family: 'Marianne', 'Arial', 'Helvetica', sans-serif;
    line-height: 1.6;
    color: #000000;
    margin: 2cm;
}

p {
    font-family: 'Marianne', sans-serif;
    font-size: 11pt;
    line-height: 1.4;
    margin-top: 0;
    margin-bottom: 6pt;
}

.ql-size-8pt {
    font-size: 8pt !important;
    color: #666666 !important;
}

.ql-size-18pt {
    font-size: 18pt;
}

.ql-size-24pt {
    font-size: 24pt;
}

.footer-style {
    font-family: 'Marianne', sans-serif !important;
    font-size: 8pt !important;
    font-weight: 400 !important;
    color: #666666 !important;
    line-height: 1.3 !important;
}

.ql-align-left {
    text-align: left !important;
}

.ql-align-center {
    text-align: center !important;
}

.ql-align-right {
    text-align: right !important;
}

.ql-align-justify {
    text-align: justify !important;
}

h1 {
    font-family: 'Marianne', sans-serif;
    font-size: 24pt;
    font-weight: 700;
    margin-top: 12pt;
    margin-bottom: 6pt;
}

h2 {
    font-family: 'Marianne', sans-serif;
    font-size: 18pt;
    font-weight: 700;
    margin-top: 10pt;
    margin-bottom: 5pt;
}

h3 {
    font-family: 'Marianne', sans-serif;
    font-size: 14pt;
    font-weight: 700;
    margin-top: 8pt;
    margin-bottom: 4pt;
}

strong, b {
    font-weight: 700;
}

em, i {
    font-style: italic;
}

u {
    text-decoration: underline;
}

ul, ol {
    font-family: 'Marianne', sans-serif;
    font-size: 11pt;
    margin-bottom: 6pt;
    padding-left: 20pt;
    line-height: 1.4;
}

li {
    margin-bottom: 3pt;
}

table {
    font-family: 'Marianne', sans-serif;
    width: 100%;
    border-collapse: collapse;
    margin-bottom: 10pt;
    font-size: 11pt;
}

th, td {
    border: 1pt solid #ccc;
    padding: 5pt;
    text-align: left;
}

th {
    background-color: #f0f0f0;
    font-weight: 700;
}

.signature-container {
    margin-top: 30pt;
    text-align: right;
}
`
