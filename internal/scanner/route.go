// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scanner

import (
	"strings"

	"github.com/pdiddy/paper-scanner/pkg/types"
)

// WorkItem is one unit of work derived from a chunk analysis. The concrete
// types are CreateFinding, UpdateFinding, UpdateMetadata and Noop.
type WorkItem interface {
	workItem()
}

// CreateFinding asks for a new finding built from Chunk.
type CreateFinding struct {
	Chunk       types.Chunk
	Title       string
	Description string
}

// UpdateFinding asks for Finding to be amended with Chunk.
type UpdateFinding struct {
	Chunk        types.Chunk
	Finding      types.Finding
	WhatToUpdate string
}

// UpdateMetadata carries metadata values found in a chunk.
type UpdateMetadata struct {
	ChunkID  string
	Metadata types.MetadataAnalysis
}

// Noop is routed when an analysis asks for nothing.
type Noop struct{}

func (CreateFinding) workItem()  {}
func (UpdateFinding) workItem()  {}
func (UpdateMetadata) workItem() {}
func (Noop) workItem()           {}

// Route turns an analysis into work items: one per new finding proposal,
// one per updated finding, and one for metadata when any field is set.
// Directives naming the same finding are coalesced so no two items touch
// the same finding. A directive naming an unknown finding fails with a
// DataIntegrityError and no items. When nothing is asked for the result is
// a single Noop.
func Route(chunk types.Chunk, analysis types.ChunkAnalysis, findings map[string]types.Finding) ([]WorkItem, error) {
	var items []WorkItem

	updates := make(map[string]int)
	for _, u := range analysis.Findings.Updates {
		f, ok := findings[u.ID]
		if !ok {
			return nil, &DataIntegrityError{ChunkID: chunk.ID, FindingID: u.ID}
		}
		if i, seen := updates[u.ID]; seen {
			prev := items[i].(UpdateFinding)
			prev.WhatToUpdate = strings.Join([]string{prev.WhatToUpdate, u.WhatToUpdate}, "\n")
			items[i] = prev
			continue
		}
		updates[u.ID] = len(items)
		items = append(items, UpdateFinding{Chunk: chunk, Finding: f, WhatToUpdate: u.WhatToUpdate})
	}

	for _, n := range analysis.Findings.New {
		items = append(items, CreateFinding{Chunk: chunk, Title: n.Title, Description: n.Description})
	}

	if !analysis.Metadata.IsEmpty() {
		items = append(items, UpdateMetadata{ChunkID: chunk.ID, Metadata: analysis.Metadata})
	}

	if len(items) == 0 {
		return []WorkItem{Noop{}}, nil
	}
	return items, nil
}
