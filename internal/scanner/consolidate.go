// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-scanner/internal/llm"
	"github.com/pdiddy/paper-scanner/pkg/types"
)

type consolidatedFinding struct {
	Title       string   `json:"title" validate:"required" jsonschema:"description=Title of the finding"`
	Summary     string   `json:"summary" validate:"required" jsonschema:"description=Summary of the finding: what it discusses and why it is important"`
	Methodology string   `json:"methodology" jsonschema:"description=Methodology used in the research of the finding"`
	Keywords    []string `json:"keywords" jsonschema:"description=Main keywords of the finding"`
}

type consolidationResponse struct {
	Findings []consolidatedFinding `json:"findings" validate:"dive" jsonschema:"description=Consolidated findings"`
}

// Consolidator merges the raw findings of a paper into a deduplicated set.
type Consolidator struct {
	client *llm.Client
}

// NewConsolidator returns a Consolidator calling client.
func NewConsolidator(client *llm.Client) *Consolidator {
	return &Consolidator{client: client}
}

// Consolidate returns at most len(findings) consolidated findings with fresh
// ids. An answer with more findings than the input counts as invalid output
// and is retried. No findings means no model call.
func (c *Consolidator) Consolidate(ctx context.Context, findings []types.Finding) ([]types.Finding, error) {
	if len(findings) == 0 {
		return []types.Finding{}, nil
	}

	blocks := make([]string, len(findings))
	taken := make(map[string]struct{}, len(findings))
	for i, f := range findings {
		blocks[i] = renderFinding(types.Finding{Title: f.Title, Summary: f.Summary, Methodology: f.Methodology}, true)
		taken[f.ID] = struct{}{}
	}

	resp, err := llm.Call[consolidationResponse](ctx, c.client, llm.ConsolidationPrompt,
		map[string]string{"findings": strings.Join(blocks, "\n")},
		func(r consolidationResponse) error {
			if len(r.Findings) > len(findings) {
				return fmt.Errorf("%d consolidated findings from %d inputs", len(r.Findings), len(findings))
			}
			for i, f := range r.Findings {
				if strings.TrimSpace(f.Title) == "" {
					return fmt.Errorf("consolidated finding %d has a blank title", i)
				}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	out := make([]types.Finding, 0, len(resp.Findings))
	for _, f := range resp.Findings {
		cf := types.Finding{
			ID:          freshID(taken),
			Title:       strings.TrimSpace(f.Title),
			Summary:     strings.TrimSpace(f.Summary),
			Methodology: strings.TrimSpace(f.Methodology),
			Keywords:    union(nil, trimAll(f.Keywords)),
		}
		if err := cf.Validate(); err != nil {
			return nil, err
		}
		out = append(out, cf)
	}
	return out, nil
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

// freshID returns a uuid not in taken and records it.
func freshID(taken map[string]struct{}) string {
	for {
		id := uuid.NewString()
		if _, dup := taken[id]; !dup {
			taken[id] = struct{}{}
			return id
		}
	}
}
