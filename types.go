package publipostage

import (
	"time"
)

// Row is one record from the data source: column name to scalar value.
// Values are what encoding/json produces for Grist cells: string, float64,
// bool, or nil. The pipeline only reads rows, never mutates them.
type Row map[string]any

// Template is the rich-text template authored in the editor.
// Two templates are equal iff Body, CSS, and Format are equal.
type Template struct {
	Body   string // HTML (Quill output) or Markdown, per Format
	CSS    string // user CSS, appended after the base stylesheet
	Format string // FormatHTML (default) or FormatMarkdown
}

// Template body formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Assets carries the optional payloads attached to a render request.
// Logo and Signature are data URIs; ServiceName is plain text shown in the
// document header. They are resolved by the renderer, not from row data.
type Assets struct {
	Logo        string
	Signature   string
	ServiceName string
}

// FilterSpec selects the row subset eligible for batch generation.
// When Enabled is false the full row set is used. When true, a row is kept
// only if its Column value is exactly boolean true or numeric 1; any other
// value, including the string "true" or a missing key, excludes the row.
// Boolean columns serialize as either type upstream, hence the narrow match.
type FilterSpec struct {
	Enabled bool
	Column  string
}

// RenderRequest is the unit of work submitted to a DocumentRenderer.
// Built fresh per row by BuildRenderRequest and never mutated afterwards.
type RenderRequest struct {
	Body     string // field-resolved body markup
	CSS      string // field-resolved user CSS
	Assets   Assets
	Filename string // resolved, sanitized output filename
}

// RowOutcome records the result of rendering one row.
type RowOutcome struct {
	Index    int // position in the input row sequence
	Filename string
	PDF      []byte
	Err      error
	Duration time.Duration
}

// Failed reports whether the row's render failed.
func (o RowOutcome) Failed() bool { return o.Err != nil }

// BatchResult is the outcome of a batch run. Outcomes are ordered by input
// row index regardless of render completion order.
type BatchResult struct {
	ID          string // job ID, for log correlation
	Outcomes    []RowOutcome
	Succeeded   int
	Failed      int
	Archive     []byte // ZIP of successful outputs
	ArchiveName string
}

// Option configures a RodRenderer.
type Option func(*RodRenderer)

// defaultTimeout bounds a single page render.
const defaultTimeout = 30 * time.Second

// WithTimeout sets the per-render timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("publipostage: WithTimeout duration must be positive")
	}
	return func(r *RodRenderer) {
		r.timeout = d
	}
}

// WithFontCSS sets the @font-face CSS embedded into every document.
func WithFontCSS(css string) Option {
	return func(r *RodRenderer) {
		r.fontCSS = css
	}
}
