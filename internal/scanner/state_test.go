// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-scanner/pkg/types"
)

func TestMergeFinding(t *testing.T) {
	existing := types.Finding{
		ID:             "f1",
		Title:          "Old title",
		Summary:        "Old summary",
		Methodology:    "Survey",
		Keywords:       []string{"nlp"},
		SourceChunkIDs: []string{"c1"},
	}
	delta := types.Finding{
		ID:             "f1",
		Summary:        "New summary",
		Keywords:       []string{"nlp", "llm"},
		SourceChunkIDs: []string{"c2"},
	}

	merged := MergeFinding(existing, delta)
	assert.Equal(t, "f1", merged.ID)
	assert.Equal(t, "Old title", merged.Title)
	assert.Equal(t, "New summary", merged.Summary)
	assert.Equal(t, "Survey", merged.Methodology)
	assert.Equal(t, []string{"nlp", "llm"}, merged.Keywords)
	assert.Equal(t, []string{"c1", "c2"}, merged.SourceChunkIDs)

	assert.Equal(t, merged, MergeFinding(merged, delta), "merge must be idempotent")

	assert.Equal(t, "Old summary", existing.Summary)
	assert.Equal(t, []string{"c1"}, existing.SourceChunkIDs)
}

func TestMergeFindingIntoEmpty(t *testing.T) {
	delta := types.Finding{ID: "f1", Title: "T", Summary: "S", SourceChunkIDs: []string{"c1"}}
	assert.Equal(t, delta, MergeFinding(types.Finding{}, delta))
}

func TestMergeFindingSourcesOnlyGrow(t *testing.T) {
	f := types.Finding{ID: "f1"}
	for _, c := range []string{"c1", "c2", "c1", "c3"} {
		before := len(f.SourceChunkIDs)
		f = MergeFinding(f, types.Finding{ID: "f1", SourceChunkIDs: []string{c}})
		assert.GreaterOrEqual(t, len(f.SourceChunkIDs), before)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, f.SourceChunkIDs)
}

func TestMergeMetadataFirstWriterWins(t *testing.T) {
	m := MergeMetadata(types.PaperMetadata{}, types.PaperMetadata{Title: "A", SourceChunkIDs: []string{"c1"}})
	m = MergeMetadata(m, types.PaperMetadata{Title: "B", Authors: []string{"Ada"}, SourceChunkIDs: []string{"c2"}})

	assert.Equal(t, "A", m.Title)
	assert.Equal(t, []string{"Ada"}, m.Authors)
	assert.Equal(t, []string{"c1", "c2"}, m.SourceChunkIDs)

	m = MergeMetadata(m, types.PaperMetadata{Authors: []string{"Bob"}})
	assert.Equal(t, []string{"Ada"}, m.Authors)
}

func TestMergeMetadataCommutesOnDisjointFields(t *testing.T) {
	a := types.PaperMetadata{Title: "T", SourceChunkIDs: []string{"c1"}}
	b := types.PaperMetadata{Abstract: "Abs", PublicationDate: "2024", SourceChunkIDs: []string{"c2"}}

	ab := MergeMetadata(MergeMetadata(types.PaperMetadata{}, a), b)
	ba := MergeMetadata(MergeMetadata(types.PaperMetadata{}, b), a)

	assert.Equal(t, ab.Title, ba.Title)
	assert.Equal(t, ab.Abstract, ba.Abstract)
	assert.Equal(t, ab.PublicationDate, ba.PublicationDate)
	assert.ElementsMatch(t, ab.SourceChunkIDs, ba.SourceChunkIDs)
}

func TestSelectNextLifecycle(t *testing.T) {
	s := newRunState([]types.Chunk{
		{ID: "c1", Status: types.ChunkPending},
		{ID: "c2", Status: types.ChunkPending},
	})

	require.True(t, s.selectNext())
	assert.Equal(t, "c1", s.Current.ID)
	assert.Empty(t, s.Processed)

	require.True(t, s.selectNext())
	assert.Equal(t, "c2", s.Current.ID)
	require.Len(t, s.Processed, 1)
	assert.Equal(t, types.ChunkProcessed, s.Processed[0].Status)

	require.False(t, s.selectNext())
	assert.Nil(t, s.Current)
	assert.Empty(t, s.Queue)
	assert.Len(t, s.Processed, 2)
}

func TestCommitKeepsCreationOrder(t *testing.T) {
	s := newRunState(nil)
	require.NoError(t, s.commit([]Delta{
		{Finding: &types.Finding{ID: "z", Title: "Z"}, Created: true},
		{Finding: &types.Finding{ID: "a", Title: "A"}, Created: true},
		{},
		{Metadata: &types.PaperMetadata{Title: "Paper"}},
	}))
	require.NoError(t, s.commit([]Delta{{Finding: &types.Finding{ID: "z", Summary: "S"}}}))

	list := s.FindingList()
	require.Len(t, list, 2)
	assert.Equal(t, "z", list[0].ID)
	assert.Equal(t, "S", list[0].Summary)
	assert.Equal(t, "a", list[1].ID)
	assert.Equal(t, "Paper", s.Metadata.Title)
}

func TestResultUsesEmptyLists(t *testing.T) {
	s := newRunState(nil)
	require.NoError(t, s.commit([]Delta{{Finding: &types.Finding{ID: "f1", Title: "T"}, Created: true}}))
	s.Processed = append(s.Processed, types.Chunk{ID: "c1", Content: "text", Status: types.ChunkProcessed})

	res := s.Result()
	assert.NotNil(t, res.Metadata.Authors)
	require.Len(t, res.RawFindings, 1)
	assert.NotNil(t, res.RawFindings[0].SourceChunkIDs)
	assert.NotNil(t, res.ConsolidatedFindings)
	assert.Equal(t, []types.ChunkRecord{{ChunkID: "c1", Content: "text"}}, res.Chunks)
}

func TestCommitRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name   string
		deltas []Delta
	}{
		{"finding without id", []Delta{
			{Finding: &types.Finding{ID: "ok", Title: "Fine"}, Created: true},
			{Finding: &types.Finding{Title: "No id"}, Created: true},
		}},
		{"finding without title", []Delta{
			{Finding: &types.Finding{ID: "f2", Summary: "Only a summary"}, Created: true},
		}},
		{"blank author", []Delta{
			{Metadata: &types.PaperMetadata{Title: "Paper"}},
			{Metadata: &types.PaperMetadata{Authors: []string{""}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newRunState(nil)
			require.NoError(t, s.commit([]Delta{{Finding: &types.Finding{ID: "f1", Title: "T"}, Created: true}}))

			require.Error(t, s.commit(tt.deltas))
			assert.Len(t, s.Findings, 1)
			assert.Equal(t, []string{"f1"}, s.order)
			assert.Empty(t, s.Metadata.Title)
		})
	}
}

func TestBlankAuthorsNeverClaimMetadata(t *testing.T) {
	first := MetadataDelta("c1", types.MetadataAnalysis{Authors: []string{" ", ""}})
	assert.Nil(t, first.Authors)

	second := MetadataDelta("c2", types.MetadataAnalysis{Authors: []string{" Ada Lovelace ", "Bob"}})
	merged := MergeMetadata(MergeMetadata(types.PaperMetadata{}, first), second)

	assert.Equal(t, []string{"Ada Lovelace", "Bob"}, merged.Authors)
	assert.Equal(t, []string{"c1", "c2"}, merged.SourceChunkIDs)
}
