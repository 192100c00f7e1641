package publipostage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/jlllyfish/ink-publipostage-grist/internal/fileutil"
)

// DocumentRenderer turns a render request into PDF bytes. The production
// implementation drives headless Chrome; tests inject fakes. A renderer is
// not reentrant beyond one in-flight render; use RendererPool to fan out.
type DocumentRenderer interface {
	Render(ctx context.Context, req RenderRequest) ([]byte, error)
	Close() error
}

// Compile-time interface check.
var _ DocumentRenderer = (*RodRenderer)(nil)

// A4 page dimensions in inches. Margins are zero: the document stylesheet
// carries its own 2cm body margin so the header rule can bleed full-width.
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
)

// RodRenderer renders documents to PDF with headless Chrome via go-rod.
// Rod downloads Chromium on first run if no browser is found. The browser
// is connected lazily on the first render.
type RodRenderer struct {
	browser *rod.Browser
	timeout time.Duration
	fontCSS string
}

// NewRodRenderer creates a RodRenderer. Apply options for timeout and
// embedded font CSS.
func NewRodRenderer(opts ...Option) *RodRenderer {
	r := &RodRenderer{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ensureBrowser lazily launches and connects to the browser.
func (r *RodRenderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.browser = rod.New().ControlURL(u)
	if err := r.browser.Connect(); err != nil {
		r.browser = nil
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources.
func (r *RodRenderer) Close() error {
	if r.browser != nil {
		err := r.browser.Close()
		r.browser = nil
		return err
	}
	return nil
}

// Render composes the full HTML document for req and renders it to PDF.
// Asset validation failures surface as ErrAssetDecode; page load timeouts
// as ErrPageLoad. Returns explicit errors instead of panicking when browser
// operations fail.
func (r *RodRenderer) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := BuildDocument(req, r.fontCSS)
	if err != nil {
		return nil, err
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(doc, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: "file://" + tmpPath})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PaperWidth:      floatPtr(paperWidthInches),
		PaperHeight:     floatPtr(paperHeightInches),
		MarginTop:       floatPtr(0),
		MarginBottom:    floatPtr(0),
		MarginLeft:      floatPtr(0),
		MarginRight:     floatPtr(0),
		PrintBackground: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}

	return pdfBuf, nil
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
