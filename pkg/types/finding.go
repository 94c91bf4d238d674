// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Finding is a discrete research claim extracted from a paper, traceable to
// the chunks it was built from. Findings are created once and afterwards
// amended in place under the same ID.
type Finding struct {
	// ID is unique within a run.
	ID string `json:"id" yaml:"id" validate:"required"`

	// Title names the finding.
	Title string `json:"title" yaml:"title" validate:"required"`

	// Summary says what the finding discusses and why it matters.
	Summary string `json:"summary" yaml:"summary"`

	// Methodology says how the research was conducted.
	Methodology string `json:"methodology" yaml:"methodology"`

	// Keywords is a set; order carries no meaning.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty" validate:"dive,required"`

	// SourceChunkIDs is a set that only grows.
	SourceChunkIDs []string `json:"source_chunk_ids,omitempty" yaml:"source_chunk_ids,omitempty" validate:"dive,required"`
}
