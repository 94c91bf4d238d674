// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the scanner over documents on disk: it converts and
// splits each paper, scans it, writes the result file and records the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-scanner/internal/convert"
	"github.com/pdiddy/paper-scanner/internal/logger"
	"github.com/pdiddy/paper-scanner/internal/scanner"
	"github.com/pdiddy/paper-scanner/internal/split"
	"github.com/pdiddy/paper-scanner/pkg/types"
)

const resultsDir = "results"

// ErrUnsupported is returned for files that are neither Markdown nor PDF.
var ErrUnsupported = errors.New("unsupported document type")

// Scanner runs the extraction state machine over text chunks.
type Scanner interface {
	Run(ctx context.Context, chunks []string) (*scanner.RunState, error)
}

// RunStore records finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, rec types.RunRecord) error
}

// Pipeline scans documents one at a time.
type Pipeline struct {
	scanner   Scanner
	converter convert.Converter
	store     RunStore
	split     types.SplitConfig
	outDir    string
	user      string
	version   string
	log       logger.Logger
	now       func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithConverter sets the converter used for PDF input.
func WithConverter(c convert.Converter) Option {
	return func(p *Pipeline) { p.converter = c }
}

// WithStore records every run in s.
func WithStore(s RunStore) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithSplit sets the Markdown chunking parameters.
func WithSplit(cfg types.SplitConfig) Option {
	return func(p *Pipeline) { p.split = cfg }
}

// WithRunInfo sets the user and scanner version stamped on each run.
func WithRunInfo(user, version string) Option {
	return func(p *Pipeline) { p.user, p.version = user, version }
}

// WithLogger sets the pipeline's logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New returns a Pipeline writing result files under baseDir/results.
func New(sc Scanner, baseDir string, opts ...Option) *Pipeline {
	p := &Pipeline{
		scanner: sc,
		outDir:  filepath.Join(baseDir, resultsDir),
		log:     logger.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Outcome describes one scanned document.
type Outcome struct {
	Record types.RunRecord

	// OutputPath is the result file; empty for failed runs.
	OutputPath string
}

// OutputPath returns the result file path for a source document.
func (p *Pipeline) OutputPath(docPath string) string {
	base := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	name := slug.Make(base)
	if name == "" {
		name = "document"
	}
	return filepath.Join(p.outDir, name+"-scan.yaml")
}

// ScanFile scans one Markdown or PDF document. Every attempt that reaches
// the scanner is recorded in the store, failures included; a failed run
// never writes a result file or stores partial findings.
func (p *Pipeline) ScanFile(ctx context.Context, path string) (*Outcome, error) {
	text, err := p.readDocument(ctx, path)
	if err != nil {
		return nil, err
	}
	chunks, err := split.Markdown(text, p.split)
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", path, err)
	}

	info := types.RunInfo{
		ID:        uuid.NewString(),
		FileName:  filepath.Base(path),
		User:      p.user,
		Version:   p.version,
		StartedAt: p.now().UTC(),
	}
	log := p.log.With("run", info.ID, "file", info.FileName)
	log.Info("scanning document", "chunks", len(chunks))

	state, scanErr := p.scanner.Run(ctx, chunks)
	info.EndedAt = p.now().UTC()

	out := &Outcome{Record: types.RunRecord{Run: info}}
	if scanErr != nil {
		out.Record.Run.Status = types.RunError
		out.Record.Run.Error = scanErr.Error()
		log.Error("scan failed", "err", scanErr)
		if err := p.save(ctx, out.Record); err != nil {
			log.Warn("could not record failed run", "err", err)
		}
		return out, fmt.Errorf("scanning %s: %w", path, scanErr)
	}

	res := state.Result()
	out.Record.Run.Status = types.RunSuccess
	out.Record.Result = &res

	outPath := p.OutputPath(path)
	if err := writeResult(outPath, out.Record); err != nil {
		return out, err
	}
	out.OutputPath = outPath

	if err := p.save(ctx, out.Record); err != nil {
		return out, fmt.Errorf("recording run %s: %w", info.ID, err)
	}
	log.Info("scan recorded", "findings", len(res.ConsolidatedFindings), "output", outPath)
	return out, nil
}

func (p *Pipeline) save(ctx context.Context, rec types.RunRecord) error {
	if p.store == nil {
		return nil
	}
	return p.store.SaveRun(ctx, rec)
}

func (p *Pipeline) readDocument(ctx context.Context, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading markdown %s: %w", path, err)
		}
		return string(data), nil
	case ".pdf":
		if p.converter == nil {
			return "", fmt.Errorf("no converter configured for %s", path)
		}
		text, err := p.converter.Convert(ctx, path)
		if err != nil {
			return "", fmt.Errorf("converting %s: %w", path, err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

// hasChanged reports whether src is newer than out, or out does not exist.
func hasChanged(src, out string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("stat document %s: %w", src, err)
	}

	outInfo, err := os.Stat(out)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat output %s: %w", out, err)
	}

	return srcInfo.ModTime().After(outInfo.ModTime()), nil
}

// writeResult marshals rec to a YAML file, creating its directory.
func writeResult(path string, rec types.RunRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing result %s: %w", path, err)
	}
	return nil
}
