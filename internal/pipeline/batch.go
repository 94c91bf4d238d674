// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BatchSummary holds counts from a directory scan.
type BatchSummary struct {
	Scanned int
	Skipped int
	Failed  int
}

// Total returns the number of documents processed.
func (s BatchSummary) Total() int {
	return s.Scanned + s.Skipped + s.Failed
}

// HasFailures reports whether any document failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// ScanAll scans every Markdown and PDF file directly under dir, in name
// order. Documents whose result file is newer than the source are skipped
// unless force is set. Progress goes to w; a cancelled context stops the
// batch and is returned as the error.
func (p *Pipeline) ScanAll(ctx context.Context, dir string, force bool, w io.Writer) (BatchSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("reading document directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".md", ".markdown", ".pdf":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var summary BatchSummary
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		src := filepath.Join(dir, name)
		if !force {
			changed, err := hasChanged(src, p.OutputPath(src))
			if err != nil {
				fmt.Fprintf(w, "failed  %s: %v\n", name, err)
				summary.Failed++
				continue
			}
			if !changed {
				fmt.Fprintf(w, "skipped %s\n", name)
				summary.Skipped++
				continue
			}
		}

		fmt.Fprintf(w, "scanning %s\n", name)
		out, err := p.ScanFile(ctx, src)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "scanned %s (%d findings)\n", name, len(out.Record.Result.ConsolidatedFindings))
		summary.Scanned++
	}

	return summary, nil
}
