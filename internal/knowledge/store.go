// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge persists scan runs in a SQLite database and answers
// queries over them: run history, stored results and finding search.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-scanner/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "scans.db"

	// timeLayout keeps a fixed width so stored times sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrNotFound is returned when a run id is not in the store.
var ErrNotFound = errors.New("run not found")

// Store manages the runs database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates the database at cfg.Dir/index/scans.db and
// creates the schema if needed.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.Dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dbDir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, dir: cfg.Dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			user_name TEXT,
			version TEXT,
			status TEXT NOT NULL,
			start_execution TEXT NOT NULL,
			end_execution TEXT,
			error TEXT,
			title TEXT,
			authors TEXT,
			publication_date TEXT,
			abstract TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_start ON runs(start_execution)`,
		`CREATE TABLE IF NOT EXISTS raw_findings (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			id TEXT NOT NULL,
			title TEXT,
			summary TEXT,
			methodology TEXT,
			source_chunk_ids TEXT,
			PRIMARY KEY (run_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS consolidated_findings (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			id TEXT NOT NULL,
			title TEXT,
			summary TEXT,
			methodology TEXT,
			keywords TEXT,
			PRIMARY KEY (run_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			chunk_id TEXT NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY (run_id, chunk_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun stores rec, replacing any earlier run with the same id. Findings
// and chunks are written only for successful runs; a failed run keeps its
// run information and error message alone.
func (s *Store) SaveRun(ctx context.Context, rec types.RunRecord) error {
	if rec.Run.ID == "" {
		return errors.New("run id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, rec.Run.ID); err != nil {
		return fmt.Errorf("removing previous run: %w", err)
	}

	var meta types.MetadataRecord
	result := rec.Result
	if rec.Run.Status != types.RunSuccess {
		result = nil
	}
	if result != nil {
		meta = result.Metadata
	}

	authorsJSON, _ := json.Marshal(meta.Authors)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, file_name, user_name, version, status, start_execution, end_execution,
			error, title, authors, publication_date, abstract)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Run.ID, rec.Run.FileName, rec.Run.User, rec.Run.Version, string(rec.Run.Status),
		formatTime(rec.Run.StartedAt), formatTime(rec.Run.EndedAt), rec.Run.Error,
		meta.Title, string(authorsJSON), meta.PublicationDate, meta.Abstract,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	if result != nil {
		if err := insertResult(ctx, tx, rec.Run.ID, result); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertResult(ctx context.Context, tx *sql.Tx, runID string, res *types.Result) error {
	for i, f := range res.RawFindings {
		sources, _ := json.Marshal(f.SourceChunkIDs)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO raw_findings (run_id, position, id, title, summary, methodology, source_chunk_ids)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, i, f.ID, f.Title, f.Summary, f.Methodology, string(sources),
		); err != nil {
			return fmt.Errorf("inserting raw finding %s: %w", f.ID, err)
		}
	}
	for i, f := range res.ConsolidatedFindings {
		keywords, _ := json.Marshal(f.Keywords)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO consolidated_findings (run_id, position, id, title, summary, methodology, keywords)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, i, f.ID, f.Title, f.Summary, f.Methodology, string(keywords),
		); err != nil {
			return fmt.Errorf("inserting consolidated finding %s: %w", f.ID, err)
		}
	}
	for i, c := range res.Chunks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (run_id, position, chunk_id, content) VALUES (?, ?, ?, ?)`,
			runID, i, c.ChunkID, c.Content,
		); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ChunkID, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(v sql.NullString) time.Time {
	if !v.Valid || v.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
