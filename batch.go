package publipostage

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Pool abstracts renderer pool operations for testability.
type Pool interface {
	Acquire() DocumentRenderer
	Release(DocumentRenderer)
	Size() int
}

// Compile-time interface check.
var _ Pool = (*RendererPool)(nil)

// RunBatch generates one PDF per filtered row and packages the successes
// into a ZIP archive.
//
// Rows are filtered first; an empty filtered set fails with ErrNoRows before
// any render is issued. Each row then gets its own render request, submitted
// to a pooled renderer with concurrency bounded by the pool size. A render
// failure is recorded as that row's outcome and never aborts the batch:
// partial success is the expected common case for large row sets. Outcomes
// keep input row order regardless of completion order.
//
// If every row fails the batch fails with ErrAllRowsFailed and no archive is
// produced. Otherwise the archive holds one entry per successful row, with
// duplicate resolved filenames disambiguated by the row index.
func RunBatch(ctx context.Context, rows []Row, tpl Template, assets Assets, pattern string, filter FilterSpec, pool Pool) (*BatchResult, error) {
	if strings.TrimSpace(tpl.Body) == "" {
		return nil, ErrEmptyTemplate
	}

	tpl, err := NormalizeTemplate(ctx, tpl)
	if err != nil {
		return nil, err
	}

	filtered, total, kept := ApplyFilter(rows, filter)
	if kept == 0 {
		return nil, fmt.Errorf("%w: 0 of %d rows matched", ErrNoRows, total)
	}

	result := &BatchResult{
		ID:       uuid.NewString(),
		Outcomes: make([]RowOutcome, kept),
	}

	concurrency := pool.Size()
	if concurrency > kept {
		concurrency = kept
	}

	jobs := make(chan int, kept)
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			renderer := pool.Acquire()
			defer pool.Release(renderer)

			for idx := range jobs {
				result.Outcomes[idx] = renderRow(ctx, renderer, tpl, filtered[idx], assets, pattern, idx)
			}
		}()
	}

	for i := range filtered {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, o := range result.Outcomes {
		if o.Failed() {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}

	if result.Succeeded == 0 {
		return nil, fmt.Errorf("%w: %d rows attempted", ErrAllRowsFailed, result.Failed)
	}

	archive, err := packageArchive(result.Outcomes)
	if err != nil {
		return nil, err
	}
	result.Archive = archive
	result.ArchiveName = "publipostage_" + time.Now().Format("20060102_150405") + ".zip"

	return result, nil
}

// renderRow builds and renders the request for one row.
func renderRow(ctx context.Context, renderer DocumentRenderer, tpl Template, row Row, assets Assets, pattern string, idx int) RowOutcome {
	start := time.Now()
	outcome := RowOutcome{Index: idx}

	req := BuildRenderRequest(tpl, row, assets, pattern, idx+1)
	outcome.Filename = req.Filename

	if err := ctx.Err(); err != nil {
		outcome.Err = err
		outcome.Duration = time.Since(start)
		return outcome
	}

	pdf, err := renderer.Render(ctx, req)
	if err != nil {
		outcome.Err = err
	} else {
		outcome.PDF = pdf
	}
	outcome.Duration = time.Since(start)
	return outcome
}

// packageArchive zips the successful outcomes. Entry names are the resolved
// filenames; a name already taken gets the row index appended before the
// extension so entries never collide.
func packageArchive(outcomes []RowOutcome) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	used := make(map[string]bool, len(outcomes))
	for _, o := range outcomes {
		if o.Failed() {
			continue
		}

		name := o.Filename
		if used[name] {
			stem := strings.TrimSuffix(name, ".pdf")
			name = stem + "_" + strconv.Itoa(o.Index+1) + ".pdf"
		}
		used[name] = true

		entry, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArchive, err)
		}
		if _, err := entry.Write(o.PDF); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArchive, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}
	return buf.Bytes(), nil
}
