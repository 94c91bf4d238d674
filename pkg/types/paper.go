// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PaperMetadata is the paper-level record assembled while scanning. Each
// field is written at most once: the first non-empty value wins.
type PaperMetadata struct {
	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors" validate:"dive,required"`

	// PublicationDate is kept as the text the paper states.
	PublicationDate string `json:"publication_date" yaml:"publication_date"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// SourceChunkIDs lists the chunks that contributed metadata.
	SourceChunkIDs []string `json:"source_chunk_ids,omitempty" yaml:"source_chunk_ids,omitempty" validate:"dive,required"`
}
