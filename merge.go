package publipostage

// BuildRenderRequest assembles the renderable document for one row: the
// template body and CSS resolved against the row, the output filename
// resolved from the pattern, and the assets attached unchanged (embedding
// them into markup is the renderer's job). Pure: identical inputs yield a
// byte-identical request, which is what makes preview regeneration
// deterministic.
//
// Markdown-format templates must be normalized to HTML with
// NormalizeTemplate before calling; index is the 1-based row position used
// by {index} filename tokens.
func BuildRenderRequest(tpl Template, row Row, assets Assets, pattern string, index int) RenderRequest {
	return RenderRequest{
		Body:     ResolveFields(tpl.Body, row),
		CSS:      ResolveFields(tpl.CSS, row),
		Assets:   assets,
		Filename: ResolveFilename(pattern, row, index),
	}
}
