// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scanner

import (
	"slices"

	"github.com/pdiddy/paper-scanner/pkg/types"
)

// RunState is the aggregate state of one scan. The controller owns the only
// reference; findings and metadata change only through MergeFinding and
// MergeMetadata.
type RunState struct {
	Metadata             types.PaperMetadata
	Findings             map[string]types.Finding
	ConsolidatedFindings []types.Finding
	Queue                []types.Chunk
	Current              *types.Chunk
	Processed            []types.Chunk

	// order lists finding ids by creation so prompts and results are stable.
	order []string
}

func newRunState(queue []types.Chunk) *RunState {
	return &RunState{
		Findings:             make(map[string]types.Finding),
		ConsolidatedFindings: []types.Finding{},
		Queue:                queue,
		Processed:            make([]types.Chunk, 0, len(queue)),
	}
}

// FindingList returns the findings in creation order.
func (s *RunState) FindingList() []types.Finding {
	out := make([]types.Finding, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.Findings[id])
	}
	return out
}

// selectNext retires the current chunk as processed and pops the queue head
// into Current. It reports false once the queue is exhausted.
func (s *RunState) selectNext() bool {
	if s.Current != nil {
		s.Current.Status = types.ChunkProcessed
		s.Processed = append(s.Processed, *s.Current)
		s.Current = nil
	}
	if len(s.Queue) == 0 {
		return false
	}
	next := s.Queue[0]
	s.Queue = s.Queue[1:]
	s.Current = &next
	return true
}

// failCurrent marks the in-flight chunk failed. The chunk stays out of
// Processed.
func (s *RunState) failCurrent() {
	if s.Current != nil {
		s.Current.Status = types.ChunkFailed
	}
}

// commit folds the joined results of one chunk into the state. Every merged
// record is validated first; if any is invalid the state is left untouched.
func (s *RunState) commit(deltas []Delta) error {
	staged := make(map[string]types.Finding)
	var created []string
	metadata := s.Metadata
	for _, d := range deltas {
		if d.Finding != nil {
			existing, ok := staged[d.Finding.ID]
			if !ok {
				existing, ok = s.Findings[d.Finding.ID]
				if !ok {
					created = append(created, d.Finding.ID)
				}
			}
			merged := MergeFinding(existing, *d.Finding)
			if err := merged.Validate(); err != nil {
				return err
			}
			staged[d.Finding.ID] = merged
		}
		if d.Metadata != nil {
			metadata = MergeMetadata(metadata, *d.Metadata)
			if err := metadata.Validate(); err != nil {
				return err
			}
		}
	}

	for id, f := range staged {
		s.Findings[id] = f
	}
	s.order = append(s.order, created...)
	s.Metadata = metadata
	return nil
}

// MergeFinding applies delta to existing and returns the result without
// modifying either argument. Non-empty delta fields replace existing ones;
// keywords and source chunk ids are unioned. Merging the same delta twice
// equals merging it once.
func MergeFinding(existing, delta types.Finding) types.Finding {
	merged := existing
	if merged.ID == "" {
		merged.ID = delta.ID
	}
	if delta.Title != "" {
		merged.Title = delta.Title
	}
	if delta.Summary != "" {
		merged.Summary = delta.Summary
	}
	if delta.Methodology != "" {
		merged.Methodology = delta.Methodology
	}
	merged.Keywords = union(existing.Keywords, delta.Keywords)
	merged.SourceChunkIDs = union(existing.SourceChunkIDs, delta.SourceChunkIDs)
	return merged
}

// MergeMetadata applies delta to existing, first writer wins per field:
// a field already set is never replaced. Source chunk ids are unioned.
func MergeMetadata(existing, delta types.PaperMetadata) types.PaperMetadata {
	merged := existing
	if merged.Title == "" {
		merged.Title = delta.Title
	}
	if len(merged.Authors) == 0 && len(delta.Authors) > 0 {
		merged.Authors = slices.Clone(delta.Authors)
	}
	if merged.PublicationDate == "" {
		merged.PublicationDate = delta.PublicationDate
	}
	if merged.Abstract == "" {
		merged.Abstract = delta.Abstract
	}
	merged.SourceChunkIDs = union(existing.SourceChunkIDs, delta.SourceChunkIDs)
	return merged
}

// union returns a new slice with the distinct values of a followed by those
// of b, skipping empty strings. Nil when both are empty.
func union(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// Result converts the state into the output record.
func (s *RunState) Result() types.Result {
	res := types.Result{
		Metadata: types.MetadataRecord{
			Title:           s.Metadata.Title,
			Authors:         nonNil(s.Metadata.Authors),
			PublicationDate: s.Metadata.PublicationDate,
			Abstract:        s.Metadata.Abstract,
		},
		RawFindings:          make([]types.RawFinding, 0, len(s.order)),
		ConsolidatedFindings: make([]types.ConsolidatedFinding, 0, len(s.ConsolidatedFindings)),
		Chunks:               make([]types.ChunkRecord, 0, len(s.Processed)),
	}
	for _, f := range s.FindingList() {
		res.RawFindings = append(res.RawFindings, types.RawFinding{
			ID:             f.ID,
			Title:          f.Title,
			Summary:        f.Summary,
			Methodology:    f.Methodology,
			SourceChunkIDs: nonNil(f.SourceChunkIDs),
		})
	}
	for _, f := range s.ConsolidatedFindings {
		res.ConsolidatedFindings = append(res.ConsolidatedFindings, types.ConsolidatedFinding{
			ID:          f.ID,
			Title:       f.Title,
			Summary:     f.Summary,
			Methodology: f.Methodology,
			Keywords:    nonNil(f.Keywords),
		})
	}
	for _, c := range s.Processed {
		res.Chunks = append(res.Chunks, types.ChunkRecord{ChunkID: c.ID, Content: c.Content})
	}
	return res
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return slices.Clone(v)
}
