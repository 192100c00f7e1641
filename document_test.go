package publipostage

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// pngDataURI returns a small valid data URI for tests.
func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("fake-png"))
}

func TestBuildDocument(t *testing.T) {
	t.Parallel()

	req := RenderRequest{
		Body: "<p>Bonjour Alice</p>",
		CSS:  "p { color: blue; }",
	}

	doc, err := BuildDocument(req, "")
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	for _, want := range []string{
		"<!DOCTYPE html>",
		`<html lang="fr">`,
		"<p>Bonjour Alice</p>",
		"p { color: blue; }",
		`class="contenu"`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}

	// No assets: no header rule, no signature block.
	if strings.Contains(doc, "signature-container\" style") {
		t.Error("unexpected signature block")
	}
	if strings.Contains(doc, "2pt solid #000091") {
		t.Error("unexpected header rule without logo or service name")
	}
}

func TestBuildDocumentHeader(t *testing.T) {
	t.Parallel()

	req := RenderRequest{
		Body: "<p>corps</p>",
		Assets: Assets{
			Logo:        pngDataURI(),
			ServiceName: "Direction\nService numérique",
		},
	}

	doc, err := BuildDocument(req, "")
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	if !strings.Contains(doc, `alt="Logo"`) {
		t.Error("header logo missing")
	}
	if !strings.Contains(doc, "Direction<br>Service numérique") {
		t.Error("service name lines not joined with <br>")
	}
	if !strings.Contains(doc, "2pt solid #000091") {
		t.Error("header rule missing")
	}
}

func TestBuildDocumentSignature(t *testing.T) {
	t.Parallel()

	req := RenderRequest{
		Body:   "<p>corps</p>",
		Assets: Assets{Signature: pngDataURI()},
	}

	doc, err := BuildDocument(req, "")
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	if !strings.Contains(doc, `alt="Signature"`) {
		t.Error("signature image missing")
	}
	// Signature is anchored inside the content div, after the body markup.
	if strings.Index(doc, `alt="Signature"`) < strings.Index(doc, "<p>corps</p>") {
		t.Error("signature rendered before the body content")
	}
}

func TestBuildDocumentScrubsEditorStyles(t *testing.T) {
	t.Parallel()

	req := RenderRequest{
		Body: `<p style="color: rgb(230, 0, 0);">rouge</p><span style="">x</span>`,
	}

	doc, err := BuildDocument(req, "")
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	if strings.Contains(doc, "rgb(230, 0, 0)") {
		t.Error("inline rgb color not scrubbed")
	}
	if strings.Contains(doc, `style=""`) {
		t.Error("empty style attribute not scrubbed")
	}
	if !strings.Contains(doc, "rouge") {
		t.Error("content lost during scrubbing")
	}
}

func TestBuildDocumentSanitizesCSS(t *testing.T) {
	t.Parallel()

	req := RenderRequest{
		Body: "<p>x</p>",
		CSS:  "</style><script>alert(1)</script>",
	}

	doc, err := BuildDocument(req, "")
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	if strings.Contains(doc, "</style><script>") {
		t.Error("user CSS closed the style block")
	}
}

func TestBuildDocumentInvalidAssets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		assets Assets
	}{
		{"logo not a data URI", Assets{Logo: "http://example.com/logo.png"}},
		{"logo without base64 payload", Assets{Logo: "data:image/png,raw"}},
		{"logo with invalid base64", Assets{Logo: "data:image/png;base64,???"}},
		{"signature with invalid base64", Assets{Signature: "data:image/png;base64,!!"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := BuildDocument(RenderRequest{Body: "<p>x</p>", Assets: tt.assets}, "")
			if !errors.Is(err, ErrAssetDecode) {
				t.Errorf("err = %v, want ErrAssetDecode", err)
			}
		})
	}
}

func TestBuildDocumentEmbedsFontCSS(t *testing.T) {
	t.Parallel()

	fontCSS := "@font-face { font-family: 'Marianne'; }\n"
	doc, err := BuildDocument(RenderRequest{Body: "<p>x</p>"}, fontCSS)
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	if !strings.Contains(doc, fontCSS) {
		t.Error("font CSS not embedded")
	}
}
