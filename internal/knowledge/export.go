// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-scanner/pkg/types"
)

const exportLimit = 100000

// ExportYAML writes the runs selected by f to <dir>/index/export.yaml and
// returns the file path.
func (s *Store) ExportYAML(ctx context.Context, f RunFilter) (string, error) {
	records, err := s.exportRecords(ctx, f)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return s.writeExport("export.yaml", data)
}

// ExportJSON writes the runs selected by f to <dir>/index/export.json and
// returns the file path.
func (s *Store) ExportJSON(ctx context.Context, f RunFilter) (string, error) {
	records, err := s.exportRecords(ctx, f)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return s.writeExport("export.json", data)
}

func (s *Store) writeExport(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, indexDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func (s *Store) exportRecords(ctx context.Context, f RunFilter) ([]types.RunRecord, error) {
	if f.Limit <= 0 {
		f.Limit = exportLimit
	}
	runs, err := s.ListRuns(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	records := make([]types.RunRecord, 0, len(runs))
	for _, r := range runs {
		rec, err := s.GetRun(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("loading run %s for export: %w", r.ID, err)
		}
		records = append(records, *rec)
	}
	return records, nil
}
