// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Result is the outcome of one scan, shaped for persistence and display.
type Result struct {
	Metadata             MetadataRecord       `json:"metadata" yaml:"metadata"`
	RawFindings          []RawFinding         `json:"raw_findings" yaml:"raw_findings"`
	ConsolidatedFindings []ConsolidatedFinding `json:"consolidated_findings" yaml:"consolidated_findings"`
	Chunks               []ChunkRecord        `json:"chunks" yaml:"chunks"`
}

// MetadataRecord is the persisted form of PaperMetadata.
type MetadataRecord struct {
	Title           string   `json:"title" yaml:"title"`
	Authors         []string `json:"authors" yaml:"authors"`
	PublicationDate string   `json:"publication_date" yaml:"publication_date"`
	Abstract        string   `json:"abstract" yaml:"abstract"`
}

// RawFinding is a finding as accumulated during the scan, with provenance.
type RawFinding struct {
	ID             string   `json:"id" yaml:"id"`
	Title          string   `json:"title" yaml:"title"`
	Summary        string   `json:"summary" yaml:"summary"`
	Methodology    string   `json:"methodology" yaml:"methodology"`
	SourceChunkIDs []string `json:"source_chunk_ids" yaml:"source_chunk_ids"`
}

// ConsolidatedFinding is a deduplicated, keyworded finding.
type ConsolidatedFinding struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Summary     string   `json:"summary" yaml:"summary"`
	Methodology string   `json:"methodology" yaml:"methodology"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
}

// ChunkRecord keeps processed chunk text for audit.
type ChunkRecord struct {
	ChunkID string `json:"chunk_id" yaml:"chunk_id"`
	Content string `json:"content" yaml:"content"`
}

// RunStatus records how a run ended.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// RunInfo describes a scan execution.
type RunInfo struct {
	// ID is a unique run identifier.
	ID string `json:"id" yaml:"id"`

	// FileName is the scanned document's base name.
	FileName string `json:"file_name" yaml:"file_name"`

	// User is whoever started the run.
	User string `json:"user_name" yaml:"user_name"`

	// Version identifies the scanner build.
	Version string `json:"version" yaml:"version"`

	Status    RunStatus `json:"status" yaml:"status"`
	StartedAt time.Time `json:"start_execution" yaml:"start_execution"`
	EndedAt   time.Time `json:"end_execution" yaml:"end_execution"`

	// Error holds the failure message for runs with status error.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunRecord pairs run information with its result. Result is nil for
// failed runs; partial results are never recorded.
type RunRecord struct {
	Run    RunInfo `json:"run_metadata" yaml:"run_metadata"`
	Result *Result `json:"result,omitempty" yaml:"result,omitempty"`
}
