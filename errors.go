package publipostage

import "errors"

// Sentinel errors for pipeline operations.
var (
	ErrEmptyTemplate = errors.New("template body cannot be empty")
	ErrNoRows        = errors.New("no rows to generate")
	ErrAllRowsFailed = errors.New("all rows failed to render")
	ErrArchive       = errors.New("archive construction failed")

	// Renderer errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrAssetDecode    = errors.New("asset decoding failed")

	// Markdown conversion errors.
	ErrMarkdownConversion = errors.New("markdown conversion failed")
)
