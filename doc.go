// Package publipostage implements the mail-merge pipeline: resolving a
// rich-text template against rows of tabular data and rendering the result
// to PDF with headless Chrome.
//
// The pipeline is assembled from small pieces. ResolveFields substitutes
// {{name}} placeholders from a row; ApplyFilter narrows the row set for
// batch generation; BuildRenderRequest assembles the renderable document
// for one row; RunBatch fans render requests out over a bounded pool of
// renderers, isolates per-row failures, and packages the successful PDFs
// into a single ZIP archive.
//
// The data source (Grist) and template storage live in internal packages;
// package publipostage only sees rows and templates.
package publipostage
