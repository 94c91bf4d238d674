// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-scanner/internal/llm"
	"github.com/pdiddy/paper-scanner/pkg/types"
)

// newFindingResponse is the model's answer to the finding_creation prompt.
type newFindingResponse struct {
	Title       string `json:"title" validate:"required" jsonschema:"description=Title of the finding"`
	Summary     string `json:"summary" validate:"required" jsonschema:"description=Summary of the finding: what it discusses and why it is important"`
	Methodology string `json:"methodology" jsonschema:"description=Methodology used in the research of the finding"`
}

// findingUpdateResponse is the model's answer to the finding_update prompt.
// Empty fields keep the current value.
type findingUpdateResponse struct {
	Title       string `json:"title,omitempty" jsonschema:"description=Updated title; leave empty to keep the current one"`
	Summary     string `json:"summary,omitempty" jsonschema:"description=Updated summary; leave empty to keep the current one"`
	Methodology string `json:"methodology,omitempty" jsonschema:"description=Updated methodology; leave empty to keep the current one"`
}

// Mutator creates and amends findings through the extraction model.
type Mutator struct {
	client *llm.Client
}

// NewMutator returns a Mutator calling client.
func NewMutator(client *llm.Client) *Mutator {
	return &Mutator{client: client}
}

// CreateFinding writes a new finding from the item's chunk. The returned
// finding has a fresh id and the chunk as its only source.
func (m *Mutator) CreateFinding(ctx context.Context, item CreateFinding) (types.Finding, error) {
	resp, err := llm.Call[newFindingResponse](ctx, m.client, llm.FindingCreationPrompt, map[string]string{
		"text":        item.Chunk.Content,
		"title":       item.Title,
		"description": item.Description,
	}, nonBlankFinding)
	if err != nil {
		return types.Finding{}, fmt.Errorf("creating finding %q: %w", item.Title, err)
	}
	return types.Finding{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(resp.Title),
		Summary:        strings.TrimSpace(resp.Summary),
		Methodology:    strings.TrimSpace(resp.Methodology),
		SourceChunkIDs: []string{item.Chunk.ID},
	}, nil
}

// UpdateFinding asks the model to amend the item's finding and returns the
// delta to merge: the finding id, fields the model actually changed, and
// the chunk as a new source.
func (m *Mutator) UpdateFinding(ctx context.Context, item UpdateFinding) (types.Finding, error) {
	resp, err := llm.Call[findingUpdateResponse](ctx, m.client, llm.FindingUpdatePrompt, map[string]string{
		"finding":        renderFinding(item.Finding, true),
		"text":           item.Chunk.Content,
		"what_to_update": item.WhatToUpdate,
	})
	if err != nil {
		return types.Finding{}, fmt.Errorf("updating finding %s: %w", item.Finding.ID, err)
	}
	return types.Finding{
		ID:             item.Finding.ID,
		Title:          changed(item.Finding.Title, resp.Title),
		Summary:        changed(item.Finding.Summary, resp.Summary),
		Methodology:    changed(item.Finding.Methodology, resp.Methodology),
		SourceChunkIDs: []string{item.Chunk.ID},
	}, nil
}

func nonBlankFinding(r newFindingResponse) error {
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Summary) == "" {
		return errors.New("new finding has a blank title or summary")
	}
	return nil
}

// changed returns next when it is non-empty and differs from current.
func changed(current, next string) string {
	next = strings.TrimSpace(next)
	if next == current {
		return ""
	}
	return next
}

// MetadataDelta turns metadata seen in a chunk into a delta for MergeMetadata.
// Values are trimmed and blank authors dropped, so a blank answer never
// claims a field.
func MetadataDelta(chunkID string, m types.MetadataAnalysis) types.PaperMetadata {
	return types.PaperMetadata{
		Title:           strings.TrimSpace(m.Title),
		Authors:         m.AuthorNames(),
		PublicationDate: strings.TrimSpace(m.PublicationDate),
		Abstract:        strings.TrimSpace(m.Abstract),
		SourceChunkIDs:  []string{chunkID},
	}
}

// renderFinding formats a finding as a labelled text block for prompts.
func renderFinding(f types.Finding, withMethodology bool) string {
	var b strings.Builder
	if f.ID != "" {
		fmt.Fprintf(&b, "Id: %s\n", f.ID)
	}
	fmt.Fprintf(&b, "Title: %s\n", f.Title)
	fmt.Fprintf(&b, "Summary: %s\n", f.Summary)
	if withMethodology {
		fmt.Fprintf(&b, "Methodology: %s\n", f.Methodology)
	}
	return b.String()
}
