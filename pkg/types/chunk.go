// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// ChunkStatus tracks a chunk through the extraction loop.
type ChunkStatus string

const (
	ChunkPending   ChunkStatus = "pending"
	ChunkProcessed ChunkStatus = "processed"
	ChunkFailed    ChunkStatus = "failed"
)

// Chunk is a bounded unit of document text submitted to the extraction model.
// Once processed only Status and Analysis may change.
type Chunk struct {
	// ID is a unique, opaque identifier assigned when the chunk is queued.
	ID string `json:"chunk_id" yaml:"chunk_id" validate:"required"`

	// Content is the chunk text.
	Content string `json:"content" yaml:"content"`

	// Status is pending until the controller moves past the chunk.
	Status ChunkStatus `json:"status" yaml:"status" validate:"oneof=pending processed failed"`

	// Analysis is attached after the chunk has been analyzed.
	Analysis *ChunkAnalysis `json:"analysis,omitempty" yaml:"analysis,omitempty"`
}

// ChunkAnalysis is the structured response of the discovery prompt for one
// chunk: proposed finding mutations plus any paper metadata found.
type ChunkAnalysis struct {
	Findings FindingsAnalysis `json:"findings" yaml:"findings" jsonschema:"description=Finding search analysis"`
	Metadata MetadataAnalysis `json:"metadata" yaml:"metadata" jsonschema:"description=Metadata of the academic paper"`
}

// FindingsAnalysis lists updates to existing findings and proposals for new ones.
type FindingsAnalysis struct {
	// Reasoning is diagnostic only.
	Reasoning string `json:"reasoning" yaml:"reasoning" jsonschema:"description=A reasoning of the possible matched or new findings"`

	Updates []FindingUpdateDirective `json:"findings_updates" yaml:"findings_updates" validate:"dive" jsonschema:"description=List of existing findings updates. Leave empty if no finding updates"`

	New []NewFindingProposal `json:"new_findings" yaml:"new_findings" validate:"dive" jsonschema:"description=List of new findings. Leave empty if no new findings"`
}

// Mutations returns the number of finding mutations the analysis asks for.
func (f FindingsAnalysis) Mutations() int {
	return len(f.Updates) + len(f.New)
}

// FindingUpdateDirective references an existing finding and says what to change.
type FindingUpdateDirective struct {
	ID           string `json:"id" yaml:"id" validate:"required" jsonschema:"description=Unique identifier of the finding to update"`
	WhatToUpdate string `json:"what_to_update" yaml:"what_to_update" validate:"required" jsonschema:"description=What's the update needed for this finding"`
}

// NewFindingProposal names a finding the chunk introduces.
type NewFindingProposal struct {
	Title       string `json:"title" yaml:"title" validate:"required" jsonschema:"description=Finding title"`
	Description string `json:"description" yaml:"description" validate:"required" jsonschema:"description=Finding brief but exact description; be specific to avoid encompassing many findings"`
}

// MetadataAnalysis carries paper metadata values seen in a chunk. Empty
// fields mean the chunk did not provide them.
type MetadataAnalysis struct {
	Reasoning       string   `json:"reasoning" yaml:"reasoning" jsonschema:"description=A very brief reasoning evaluating if the text contains metadata"`
	Title           string   `json:"title,omitempty" yaml:"title,omitempty" jsonschema:"description=Title of the academic paper; if provided"`
	Authors         []string `json:"authors,omitempty" yaml:"authors,omitempty" jsonschema:"description=Authors of the academic paper; if provided"`
	PublicationDate string   `json:"publication_date,omitempty" yaml:"publication_date,omitempty" jsonschema:"description=Publication date of the academic paper; if provided"`
	Abstract        string   `json:"abstract,omitempty" yaml:"abstract,omitempty" jsonschema:"description=Abstract of the academic paper; if provided"`
}

// IsEmpty reports whether no metadata field carries a value. Blank
// strings and author lists holding only blanks count as empty.
func (m MetadataAnalysis) IsEmpty() bool {
	return strings.TrimSpace(m.Title) == "" &&
		len(m.AuthorNames()) == 0 &&
		strings.TrimSpace(m.PublicationDate) == "" &&
		strings.TrimSpace(m.Abstract) == ""
}

// AuthorNames returns the trimmed, non-blank authors in source order, or
// nil when there are none.
func (m MetadataAnalysis) AuthorNames() []string {
	var out []string
	for _, a := range m.Authors {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
