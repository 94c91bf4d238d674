// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/paper-scanner/pkg/types"
)

// RunFilter narrows ListRuns and exports.
type RunFilter struct {
	// User keeps runs started by this user.
	User string

	// Status keeps runs with this outcome.
	Status types.RunStatus

	// Limit caps the result count. Zero uses the store default.
	Limit int
}

// ListRuns returns run information, newest first.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]types.RunInfo, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = s.maxResults
	}

	q := sq.Select("id", "file_name", "user_name", "version", "status", "start_execution", "end_execution", "error").
		From("runs").
		OrderBy("start_execution DESC", "id").
		Limit(uint64(limit))
	if f.User != "" {
		q = q.Where(sq.Eq{"user_name": f.User})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": string(f.Status)})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building run query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunInfo
	for rows.Next() {
		info, err := scanRunInfo(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunInfo(r rowScanner) (types.RunInfo, error) {
	var (
		info                  types.RunInfo
		status                string
		user, version, errMsg sql.NullString
		started, ended        sql.NullString
	)
	if err := r.Scan(&info.ID, &info.FileName, &user, &version, &status, &started, &ended, &errMsg); err != nil {
		return types.RunInfo{}, fmt.Errorf("scanning run: %w", err)
	}
	info.User = user.String
	info.Version = version.String
	info.Status = types.RunStatus(status)
	info.StartedAt = parseTime(started)
	info.EndedAt = parseTime(ended)
	info.Error = errMsg.String
	return info, nil
}

// GetRun loads a full run record. Failed runs come back without a result.
func (s *Store) GetRun(ctx context.Context, id string) (*types.RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, user_name, version, status, start_execution, end_execution, error
		 FROM runs WHERE id = ?`, id)
	info, err := scanRunInfo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	rec := &types.RunRecord{Run: info}
	if info.Status != types.RunSuccess {
		return rec, nil
	}

	res, err := s.loadResult(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Result = res
	return rec, nil
}

func (s *Store) loadResult(ctx context.Context, runID string) (*types.Result, error) {
	res := &types.Result{
		RawFindings:          []types.RawFinding{},
		ConsolidatedFindings: []types.ConsolidatedFinding{},
		Chunks:               []types.ChunkRecord{},
	}

	var authors sql.NullString
	var title, date, abstract sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT title, authors, publication_date, abstract FROM runs WHERE id = ?`, runID,
	).Scan(&title, &authors, &date, &abstract); err != nil {
		return nil, fmt.Errorf("loading metadata: %w", err)
	}
	authorList, err := decodeList("authors", authors)
	if err != nil {
		return nil, err
	}
	res.Metadata = types.MetadataRecord{
		Title:           title.String,
		Authors:         authorList,
		PublicationDate: date.String,
		Abstract:        abstract.String,
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, summary, methodology, source_chunk_ids
		 FROM raw_findings WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading raw findings: %w", err)
	}
	for rows.Next() {
		var f types.RawFinding
		var sources sql.NullString
		if err := rows.Scan(&f.ID, &f.Title, &f.Summary, &f.Methodology, &sources); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning raw finding: %w", err)
		}
		if f.SourceChunkIDs, err = decodeList("source_chunk_ids", sources); err != nil {
			rows.Close()
			return nil, fmt.Errorf("raw finding %s: %w", f.ID, err)
		}
		res.RawFindings = append(res.RawFindings, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	consolidated, err := s.queryFindings(ctx,
		`SELECT c.id, c.title, c.summary, c.methodology, c.keywords, r.id, r.file_name, r.title
		 FROM consolidated_findings c JOIN runs r ON r.id = c.run_id
		 WHERE c.run_id = ? ORDER BY c.position`, runID)
	if err != nil {
		return nil, err
	}
	for _, f := range consolidated {
		res.ConsolidatedFindings = append(res.ConsolidatedFindings, f.ConsolidatedFinding)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT chunk_id, content FROM chunks WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c types.ChunkRecord
		if err := rows.Scan(&c.ChunkID, &c.Content); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		res.Chunks = append(res.Chunks, c)
	}
	return res, rows.Err()
}

// FindingQuery selects consolidated findings.
type FindingQuery struct {
	// Text matches title, summary or methodology, case-insensitively.
	Text string

	// Keyword keeps findings carrying this exact keyword.
	Keyword string

	// RunID restricts the search to one run.
	RunID string

	// MaxResults caps the result count. Zero uses the store default.
	MaxResults int
}

// FindingResult is a consolidated finding with the run it came from.
type FindingResult struct {
	types.ConsolidatedFinding `yaml:",inline"`
	RunID                     string `json:"run_id" yaml:"run_id"`
	FileName                  string `json:"file_name" yaml:"file_name"`
	PaperTitle                string `json:"paper_title" yaml:"paper_title"`
}

// SearchFindings returns consolidated findings of successful runs matching
// q, newest run first.
func (s *Store) SearchFindings(ctx context.Context, q FindingQuery) ([]FindingResult, error) {
	limit := q.MaxResults
	if limit <= 0 {
		limit = s.maxResults
	}

	sel := sq.Select("c.id", "c.title", "c.summary", "c.methodology", "c.keywords", "r.id", "r.file_name", "r.title").
		From("consolidated_findings c").
		Join("runs r ON r.id = c.run_id").
		Where(sq.Eq{"r.status": string(types.RunSuccess)}).
		OrderBy("r.start_execution DESC", "c.position").
		Limit(uint64(limit))

	if text := strings.TrimSpace(q.Text); text != "" {
		pattern := "%" + escapeLike(text) + "%"
		sel = sel.Where(sq.Or{
			sq.Expr(`c.title LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`c.summary LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`c.methodology LIKE ? ESCAPE '\'`, pattern),
		})
	}
	if q.Keyword != "" {
		sel = sel.Where(sq.Expr(`EXISTS (SELECT 1 FROM json_each(c.keywords) WHERE value = ?)`, q.Keyword))
	}
	if q.RunID != "" {
		sel = sel.Where(sq.Eq{"c.run_id": q.RunID})
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building finding query: %w", err)
	}
	return s.queryFindings(ctx, query, args...)
}

func (s *Store) queryFindings(ctx context.Context, query string, args ...any) ([]FindingResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying findings: %w", err)
	}
	defer rows.Close()

	var results []FindingResult
	for rows.Next() {
		var (
			fr                               FindingResult
			summary, methodology, paperTitle sql.NullString
			keywords                         sql.NullString
		)
		if err := rows.Scan(&fr.ID, &fr.Title, &summary, &methodology, &keywords,
			&fr.RunID, &fr.FileName, &paperTitle); err != nil {
			return nil, fmt.Errorf("scanning finding: %w", err)
		}
		fr.Summary = summary.String
		fr.Methodology = methodology.String
		if fr.Keywords, err = decodeList("keywords", keywords); err != nil {
			return nil, fmt.Errorf("consolidated finding %s: %w", fr.ID, err)
		}
		fr.PaperTitle = paperTitle.String
		results = append(results, fr)
	}
	return results, rows.Err()
}

// decodeList reads a JSON string array column. NULL or empty text is an
// empty list; anything else must decode.
func decodeList(column string, v sql.NullString) ([]string, error) {
	out := []string{}
	if !v.Valid || v.String == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", column, err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
