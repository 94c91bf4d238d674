// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-scanner/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(types.StoreConfig{Dir: t.TempDir(), MaxResults: 20})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func successRecord(id, user string, offset time.Duration) types.RunRecord {
	return types.RunRecord{
		Run: types.RunInfo{
			ID:        id,
			FileName:  id + ".pdf",
			User:      user,
			Version:   "v0.3.0",
			Status:    types.RunSuccess,
			StartedAt: baseTime.Add(offset),
			EndedAt:   baseTime.Add(offset + time.Minute),
		},
		Result: &types.Result{
			Metadata: types.MetadataRecord{
				Title:           "Efficient Attention for " + id,
				Authors:         []string{"Smith, J.", "Doe, A."},
				PublicationDate: "2024",
				Abstract:        "We study attention.",
			},
			RawFindings: []types.RawFinding{
				{ID: "raw-1", Title: "Linear attention", Summary: "O(n) attention", Methodology: "Benchmarks", SourceChunkIDs: []string{"c1", "c2"}},
			},
			ConsolidatedFindings: []types.ConsolidatedFinding{
				{ID: "con-1", Title: "Linear attention", Summary: "Attention in O(n log n) time", Methodology: "GLUE benchmark", Keywords: []string{"attention", "efficiency"}},
				{ID: "con-2", Title: "Accuracy", Summary: "89.2% on GLUE_test", Methodology: "Evaluation", Keywords: []string{"benchmark"}},
			},
			Chunks: []types.ChunkRecord{
				{ChunkID: "c1", Content: "# Intro"},
				{ChunkID: "c2", Content: "## Method"},
			},
		},
	}
}

func failedRecord(id, user string, offset time.Duration) types.RunRecord {
	rec := successRecord(id, user, offset)
	rec.Run.Status = types.RunError
	rec.Run.Error = "scan failed during analysis of chunk c1: rate limited"
	return rec
}

func save(t *testing.T, s *Store, recs ...types.RunRecord) {
	t.Helper()
	for _, r := range recs {
		if err := s.SaveRun(context.Background(), r); err != nil {
			t.Fatalf("SaveRun(%s): %v", r.Run.ID, err)
		}
	}
}

// --- schema tests ---

func TestNewStoreCreatesSchema(t *testing.T) {
	store := testStore(t)

	for _, table := range []string{"runs", "raw_findings", "consolidated_findings", "chunks"} {
		var count int
		err := store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}
	if _, err := os.Stat(filepath.Join(store.dir, indexDir, dbFile)); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

// --- save and load ---

func TestSaveAndGetRun(t *testing.T) {
	store := testStore(t)
	want := successRecord("run-1", "ada", 0)
	save(t, store, want)

	got, err := store.GetRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !got.Run.StartedAt.Equal(want.Run.StartedAt) || !got.Run.EndedAt.Equal(want.Run.EndedAt) {
		t.Errorf("times = %v..%v, want %v..%v", got.Run.StartedAt, got.Run.EndedAt, want.Run.StartedAt, want.Run.EndedAt)
	}
	got.Run.StartedAt, got.Run.EndedAt = want.Run.StartedAt, want.Run.EndedAt
	if fmt.Sprint(got.Run) != fmt.Sprint(want.Run) {
		t.Errorf("run = %+v, want %+v", got.Run, want.Run)
	}

	gotJSON, _ := json.Marshal(got.Result)
	wantJSON, _ := json.Marshal(want.Result)
	if string(gotJSON) != string(wantJSON) {
		t.Errorf("result mismatch:\n got %s\nwant %s", gotJSON, wantJSON)
	}
}

func TestSaveRunReplacesExisting(t *testing.T) {
	store := testStore(t)
	save(t, store, successRecord("run-1", "ada", 0))

	updated := successRecord("run-1", "ada", 0)
	updated.Result.ConsolidatedFindings = updated.Result.ConsolidatedFindings[:1]
	save(t, store, updated)

	got, err := store.GetRun(context.Background(), "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(got.Result.ConsolidatedFindings); n != 1 {
		t.Errorf("consolidated findings = %d, want 1", n)
	}
}

func TestFailedRunStoresNoFindings(t *testing.T) {
	store := testStore(t)
	save(t, store, failedRecord("run-err", "ada", 0))

	got, err := store.GetRun(context.Background(), "run-err")
	if err != nil {
		t.Fatal(err)
	}
	if got.Result != nil {
		t.Errorf("failed run has a result: %+v", got.Result)
	}
	if got.Run.Error == "" || got.Run.Status != types.RunError {
		t.Errorf("run = %+v, want error status and message", got.Run)
	}

	for _, table := range []string{"raw_findings", "consolidated_findings", "chunks"} {
		var n int
		if err := store.db.QueryRow(`SELECT count(*) FROM `+table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%s has %d rows for a failed run", table, n)
		}
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := testStore(t)
	_, err := store.GetRun(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetRunRejectsCorruptLists(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"authors", `UPDATE runs SET authors = '["Smith' WHERE id = 'r1'`},
		{"source chunk ids", `UPDATE raw_findings SET source_chunk_ids = 'c1,c2' WHERE run_id = 'r1'`},
		{"keywords", `UPDATE consolidated_findings SET keywords = '{"a":1}' WHERE run_id = 'r1'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testStore(t)
			save(t, store, successRecord("r1", "ada", 0))
			if _, err := store.db.Exec(tt.query); err != nil {
				t.Fatal(err)
			}
			if _, err := store.GetRun(context.Background(), "r1"); err == nil {
				t.Errorf("expected error for corrupt %s column", tt.name)
			}
		})
	}
}

func TestSearchFindingsRejectsCorruptKeywords(t *testing.T) {
	store := testStore(t)
	save(t, store, successRecord("r1", "ada", 0))
	if _, err := store.db.Exec(`UPDATE consolidated_findings SET keywords = 'oops' WHERE run_id = 'r1'`); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SearchFindings(context.Background(), FindingQuery{RunID: "r1"}); err == nil {
		t.Error("expected error for corrupt keywords column")
	}
}

func TestSaveRunRequiresID(t *testing.T) {
	store := testStore(t)
	if err := store.SaveRun(context.Background(), types.RunRecord{}); err == nil {
		t.Error("expected error for empty run id")
	}
}

// --- listing ---

func TestListRuns(t *testing.T) {
	store := testStore(t)
	save(t, store,
		successRecord("oldest", "ada", 0),
		failedRecord("middle", "bob", time.Hour),
		successRecord("newest", "ada", 2*time.Hour),
	)

	tests := []struct {
		name   string
		filter RunFilter
		want   []string
	}{
		{"all newest first", RunFilter{}, []string{"newest", "middle", "oldest"}},
		{"by user", RunFilter{User: "ada"}, []string{"newest", "oldest"}},
		{"by status", RunFilter{Status: types.RunError}, []string{"middle"}},
		{"limit", RunFilter{Limit: 1}, []string{"newest"}},
		{"no match", RunFilter{User: "eve"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := store.ListRuns(context.Background(), tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
				t.Errorf("ids = %v, want %v", ids, tt.want)
			}
		})
	}
}

// --- search ---

func TestSearchFindings(t *testing.T) {
	store := testStore(t)
	save(t, store,
		successRecord("run-a", "ada", 0),
		successRecord("run-b", "bob", time.Hour),
		failedRecord("run-x", "ada", 2*time.Hour),
	)

	tests := []struct {
		name  string
		query FindingQuery
		want  int
	}{
		{"everything from successful runs", FindingQuery{}, 4},
		{"text in title", FindingQuery{Text: "linear"}, 2},
		{"text in summary", FindingQuery{Text: "O(n LOG n)"}, 2},
		{"underscore is literal", FindingQuery{Text: "GLUE_test"}, 2},
		{"percent is literal", FindingQuery{Text: "%"}, 2},
		{"keyword", FindingQuery{Keyword: "benchmark"}, 2},
		{"keyword is exact", FindingQuery{Keyword: "bench"}, 0},
		{"single run", FindingQuery{RunID: "run-a"}, 2},
		{"max results", FindingQuery{MaxResults: 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.SearchFindings(context.Background(), tt.query)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != tt.want {
				t.Errorf("got %d results, want %d", len(results), tt.want)
			}
			for _, r := range results {
				if r.RunID == "run-x" {
					t.Error("findings of failed runs must not be searchable")
				}
			}
		})
	}

	results, _ := store.SearchFindings(context.Background(), FindingQuery{Keyword: "efficiency"})
	if len(results) == 0 || results[0].RunID != "run-b" || results[0].PaperTitle != "Efficient Attention for run-b" {
		t.Errorf("expected newest run first with paper title, got %+v", results)
	}
}

// --- export ---

func TestExport(t *testing.T) {
	store := testStore(t)
	save(t, store, successRecord("run-a", "ada", 0), failedRecord("run-x", "bob", time.Hour))

	yamlPath, err := store.ExportYAML(context.Background(), RunFilter{})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	var fromYAML []types.RunRecord
	if err := yaml.Unmarshal(data, &fromYAML); err != nil {
		t.Fatal(err)
	}
	if len(fromYAML) != 2 {
		t.Fatalf("yaml export has %d runs, want 2", len(fromYAML))
	}
	if fromYAML[0].Result != nil || fromYAML[1].Result == nil {
		t.Errorf("only the successful run carries a result")
	}

	jsonPath, err := store.ExportJSON(context.Background(), RunFilter{User: "ada"})
	if err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var fromJSON []types.RunRecord
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		t.Fatal(err)
	}
	if len(fromJSON) != 1 || fromJSON[0].Run.ID != "run-a" {
		t.Errorf("json export = %+v, want run-a only", fromJSON)
	}
	if filepath.Dir(jsonPath) != filepath.Join(store.dir, indexDir) {
		t.Errorf("export written to %s", jsonPath)
	}
}
