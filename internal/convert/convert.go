// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns PDF papers into text the scanner can split.
// Backends are pluggable: plain text extraction in process, or markitdown
// running in a container.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/paper-scanner/internal/container"
	"github.com/pdiddy/paper-scanner/pkg/types"
)

// ErrNoText is returned when a document yields no extractable text, as with
// scanned image-only PDFs.
var ErrNoText = errors.New("no text extracted")

// Converter transforms a PDF file into Markdown or plain text.
type Converter interface {
	Convert(ctx context.Context, pdfPath string) (string, error)
}

// New returns the converter selected by cfg. The markitdown backend needs a
// working container runtime and the markitdown image.
func New(ctx context.Context, cfg types.ConversionConfig) (Converter, error) {
	switch cfg.Backend {
	case "", types.BackendPDFText:
		return NewPDFTextConverter(), nil
	case types.BackendMarkitdown:
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		return NewMarkitdownConverter(ctx, rt)
	default:
		return nil, fmt.Errorf("unknown conversion backend %q", cfg.Backend)
	}
}

// Status is the outcome of converting one file.
type Status string

const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// MarkdownPath returns where ConvertFile writes the output for pdfPath.
func MarkdownPath(pdfPath, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	return filepath.Join(outDir, base+".md")
}

// ConvertFile converts one PDF into outDir/<name>.md with a frontmatter
// header. Existing output is left alone and reported as skipped.
func ConvertFile(ctx context.Context, c Converter, pdfPath, outDir string, w io.Writer) Status {
	mdPath := MarkdownPath(pdfPath, outDir)
	name := filepath.Base(mdPath)

	if _, err := os.Stat(mdPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", name)
		return StatusSkipped
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
		return StatusFailed
	}

	text, err := c.Convert(ctx, pdfPath)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
		return StatusFailed
	}

	if err := os.WriteFile(mdPath, []byte(addFrontmatter(pdfPath, text)), 0o644); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
		return StatusFailed
	}

	fmt.Fprintf(w, "converted: %s\n", name)
	return StatusConverted
}

// ConvertBatch converts each path, printing per-file status and a summary
// to w. It stops early when ctx is cancelled.
func ConvertBatch(ctx context.Context, c Converter, pdfPaths []string, outDir string, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range pdfPaths {
		if ctx.Err() != nil {
			break
		}
		switch ConvertFile(ctx, c, p, outDir, w) {
		case StatusConverted:
			result.Converted++
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

func addFrontmatter(pdfPath, body string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "source_pdf: %q\n", pdfPath)
	fmt.Fprintf(&b, "converted_at: %q\n", time.Now().UTC().Format(time.RFC3339))
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.String()
}
