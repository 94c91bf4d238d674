// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scanner

import (
	"slices"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-scanner/pkg/types"
)

// DefaultMinChunkLength is the shortest chunk, in characters, worth a model call.
const DefaultMinChunkLength = 500

// PrepareChunks turns raw text chunks into the run queue. Scanning from the
// end, a chunk shorter than minLen is merged into its predecessor, so every
// queued chunk except possibly the first reaches minLen. Large chunks are
// never re-split. Each chunk gets a fresh id and pending status.
func PrepareChunks(raw []string, minLen int) ([]types.Chunk, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if minLen <= 0 {
		minLen = DefaultMinChunkLength
	}

	merged := make([]string, 0, len(raw))
	current := raw[len(raw)-1]
	for i := len(raw) - 2; i >= 0; i-- {
		if utf8.RuneCountInString(current) < minLen {
			current = raw[i] + current
			continue
		}
		merged = append(merged, current)
		current = raw[i]
	}
	merged = append(merged, current)
	slices.Reverse(merged)

	chunks := make([]types.Chunk, len(merged))
	for i, text := range merged {
		chunks[i] = types.Chunk{
			ID:      uuid.NewString(),
			Content: text,
			Status:  types.ChunkPending,
		}
		if err := chunks[i].Validate(); err != nil {
			return nil, err
		}
	}
	return chunks, nil
}
