package publipostage

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
)

// fakeRenderer implements DocumentRenderer for orchestrator tests.
type fakeRenderer struct {
	render func(ctx context.Context, req RenderRequest) ([]byte, error)
	closed atomic.Bool
}

func (f *fakeRenderer) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	return f.render(ctx, req)
}

func (f *fakeRenderer) Close() error {
	f.closed.Store(true)
	return nil
}

// newFakePool builds a RendererPool whose renderers share one render func.
func newFakePool(size int, render func(ctx context.Context, req RenderRequest) ([]byte, error)) *RendererPool {
	return NewRendererPool(size, func() DocumentRenderer {
		return &fakeRenderer{render: render}
	})
}

// countingRender wraps a render func and counts invocations.
func countingRender(calls *atomic.Int64, render func(ctx context.Context, req RenderRequest) ([]byte, error)) func(ctx context.Context, req RenderRequest) ([]byte, error) {
	return func(ctx context.Context, req RenderRequest) ([]byte, error) {
		calls.Add(1)
		return render(ctx, req)
	}
}

func okRender(_ context.Context, req RenderRequest) ([]byte, error) {
	return []byte("pdf:" + req.Filename), nil
}

func TestRunBatchPartialFailure(t *testing.T) {
	t.Parallel()

	rows := make([]Row, 5)
	for i := range rows {
		rows[i] = Row{"id": fmt.Sprintf("r%d", i)}
	}

	// Row index 2 fails; everything else succeeds.
	pool := newFakePool(2, func(ctx context.Context, req RenderRequest) ([]byte, error) {
		if req.Filename == "doc_r2.pdf" {
			return nil, fmt.Errorf("%w: boom", ErrPageLoad)
		}
		return okRender(ctx, req)
	})
	defer pool.Close()

	result, err := RunBatch(context.Background(), rows, Template{Body: "<p>{{id}}</p>"}, Assets{}, "doc_{id}", FilterSpec{}, pool)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	if len(result.Outcomes) != 5 {
		t.Fatalf("outcomes = %d, want 5", len(result.Outcomes))
	}
	for i, o := range result.Outcomes {
		if o.Index != i {
			t.Errorf("outcome %d has index %d, want input order preserved", i, o.Index)
		}
	}
	if !result.Outcomes[2].Failed() {
		t.Error("outcome[2] should have failed")
	}
	if !errors.Is(result.Outcomes[2].Err, ErrPageLoad) {
		t.Errorf("outcome[2].Err = %v, want ErrPageLoad", result.Outcomes[2].Err)
	}
	if result.Succeeded != 4 || result.Failed != 1 {
		t.Errorf("counts = (%d, %d), want (4, 1)", result.Succeeded, result.Failed)
	}
	if result.ID == "" {
		t.Error("batch ID missing")
	}

	zr, err := zip.NewReader(bytes.NewReader(result.Archive), int64(len(result.Archive)))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if len(zr.File) != 4 {
		t.Fatalf("archive entries = %d, want 4", len(zr.File))
	}
	seen := make(map[string]bool)
	for _, f := range zr.File {
		if seen[f.Name] {
			t.Errorf("duplicate archive entry %q", f.Name)
		}
		seen[f.Name] = true
	}
	if seen["doc_r2.pdf"] {
		t.Error("failed row leaked into the archive")
	}
}

func TestRunBatchNoRows(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	pool := newFakePool(1, countingRender(&calls, okRender))
	defer pool.Close()

	rows := []Row{{"flag": false}, {"flag": "true"}, {}}
	filter := FilterSpec{Enabled: true, Column: "flag"}

	_, err := RunBatch(context.Background(), rows, Template{Body: "<p>x</p>"}, Assets{}, "doc", filter, pool)
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("err = %v, want ErrNoRows", err)
	}
	if calls.Load() != 0 {
		t.Errorf("render called %d times before failing, want 0", calls.Load())
	}
}

func TestRunBatchAllRowsFailed(t *testing.T) {
	t.Parallel()

	pool := newFakePool(2, func(context.Context, RenderRequest) ([]byte, error) {
		return nil, fmt.Errorf("%w: chrome crashed", ErrPDFGeneration)
	})
	defer pool.Close()

	rows := []Row{{"id": "a"}, {"id": "b"}, {"id": "c"}}
	result, err := RunBatch(context.Background(), rows, Template{Body: "<p>x</p>"}, Assets{}, "doc_{id}", FilterSpec{}, pool)

	if !errors.Is(err, ErrAllRowsFailed) {
		t.Fatalf("err = %v, want ErrAllRowsFailed", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil (no archive on total failure)", result)
	}
}

func TestRunBatchEmptyTemplate(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	pool := newFakePool(1, countingRender(&calls, okRender))
	defer pool.Close()

	_, err := RunBatch(context.Background(), []Row{{"a": "b"}}, Template{Body: "   "}, Assets{}, "doc", FilterSpec{}, pool)
	if !errors.Is(err, ErrEmptyTemplate) {
		t.Fatalf("err = %v, want ErrEmptyTemplate", err)
	}
	if calls.Load() != 0 {
		t.Errorf("render called %d times, want 0", calls.Load())
	}
}

func TestRunBatchAppliesFilter(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{"flag": true, "id": "keep1"},
		{"flag": false, "id": "drop"},
		{"flag": float64(1), "id": "keep2"},
	}

	pool := newFakePool(1, okRender)
	defer pool.Close()

	result, err := RunBatch(context.Background(), rows, Template{Body: "<p>{{id}}</p>"}, Assets{}, "{id}", FilterSpec{Enabled: true, Column: "flag"}, pool)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	if len(result.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2 (filtered)", len(result.Outcomes))
	}
	if result.Outcomes[0].Filename != "keep1.pdf" || result.Outcomes[1].Filename != "keep2.pdf" {
		t.Errorf("filtered outcomes = %q, %q", result.Outcomes[0].Filename, result.Outcomes[1].Filename)
	}
}

func TestRunBatchDuplicateFilenames(t *testing.T) {
	t.Parallel()

	rows := []Row{{"n": "a"}, {"n": "b"}, {"n": "c"}}

	// Static pattern: every row resolves to the same filename.
	pool := newFakePool(2, okRender)
	defer pool.Close()

	result, err := RunBatch(context.Background(), rows, Template{Body: "<p>x</p>"}, Assets{}, "lettre", FilterSpec{}, pool)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(result.Archive), int64(len(result.Archive)))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if len(zr.File) != 3 {
		t.Fatalf("archive entries = %d, want 3", len(zr.File))
	}

	seen := make(map[string]bool)
	for _, f := range zr.File {
		if seen[f.Name] {
			t.Fatalf("archive entry collision on %q", f.Name)
		}
		seen[f.Name] = true
		if !strings.HasSuffix(f.Name, ".pdf") {
			t.Errorf("entry %q missing .pdf suffix", f.Name)
		}
	}
	if !seen["lettre.pdf"] {
		t.Error("first entry should keep the resolved name")
	}
}

func TestRunBatchBoundedConcurrency(t *testing.T) {
	t.Parallel()

	const poolSize = 2
	var inflight, peak atomic.Int64

	pool := newFakePool(poolSize, func(ctx context.Context, req RenderRequest) ([]byte, error) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer inflight.Add(-1)
		return okRender(ctx, req)
	})
	defer pool.Close()

	rows := make([]Row, 20)
	for i := range rows {
		rows[i] = Row{"id": fmt.Sprintf("r%d", i)}
	}

	if _, err := RunBatch(context.Background(), rows, Template{Body: "<p>{{id}}</p>"}, Assets{}, "doc_{id}", FilterSpec{}, pool); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	if peak.Load() > poolSize {
		t.Errorf("peak concurrent renders = %d, want <= %d", peak.Load(), poolSize)
	}
}

func TestRunBatchMarkdownTemplate(t *testing.T) {
	t.Parallel()

	var lastBody string
	pool := newFakePool(1, func(_ context.Context, req RenderRequest) ([]byte, error) {
		lastBody = req.Body
		return []byte("pdf"), nil
	})
	defer pool.Close()

	tpl := Template{Body: "# Bonjour {{nom}}", Format: FormatMarkdown}
	if _, err := RunBatch(context.Background(), []Row{{"nom": "Alice"}}, tpl, Assets{}, "doc", FilterSpec{}, pool); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	if !strings.Contains(lastBody, "<h1") || !strings.Contains(lastBody, "Alice") {
		t.Errorf("markdown not converted before merge: %q", lastBody)
	}
}
