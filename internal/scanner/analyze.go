// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scanner

import (
	"context"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-scanner/internal/llm"
	"github.com/pdiddy/paper-scanner/internal/logger"
	"github.com/pdiddy/paper-scanner/pkg/types"
)

// DefaultMaxMutationsPerChunk is the mutation limit stated in the discovery prompt.
const DefaultMaxMutationsPerChunk = 3

const noFindings = "No existing findings yet"

// Analyzer asks the model which findings a chunk adds or refines and what
// paper metadata it states.
type Analyzer struct {
	client       *llm.Client
	maxMutations int
	log          logger.Logger
}

// NewAnalyzer returns an Analyzer. A non-positive maxMutations uses the default.
func NewAnalyzer(client *llm.Client, maxMutations int, log logger.Logger) *Analyzer {
	if maxMutations <= 0 {
		maxMutations = DefaultMaxMutationsPerChunk
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Analyzer{client: client, maxMutations: maxMutations, log: log}
}

// Analyze runs the discovery prompt for chunk against the known findings.
// The mutation limit is a guideline to the model: an analysis exceeding it
// is logged, not rejected.
func (a *Analyzer) Analyze(ctx context.Context, chunk types.Chunk, findings []types.Finding) (types.ChunkAnalysis, error) {
	analysis, err := llm.Call[types.ChunkAnalysis](ctx, a.client, llm.DiscoveryPrompt, map[string]string{
		"text":              chunk.Content,
		"existing_findings": renderFindingSummaries(findings),
		"max_mutations":     strconv.Itoa(a.maxMutations),
	})
	if err != nil {
		return types.ChunkAnalysis{}, err
	}
	if n := analysis.Findings.Mutations(); n > a.maxMutations {
		a.log.Warn("analysis exceeds mutation guideline", "chunk", chunk.ID, "mutations", n, "limit", a.maxMutations)
	}
	return analysis, nil
}

func renderFindingSummaries(findings []types.Finding) string {
	if len(findings) == 0 {
		return noFindings
	}
	blocks := make([]string, len(findings))
	for i, f := range findings {
		blocks[i] = renderFinding(f, false)
	}
	return strings.Join(blocks, "\n")
}
