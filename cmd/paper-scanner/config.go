// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/pdiddy/paper-scanner/pkg/types"
)

// registerDefaults makes every config key known to viper, so environment
// variables such as PAPER_SCANNER_AI_MODEL apply without a config file.
func registerDefaults(v *viper.Viper) {
	d := types.DefaultPipelineConfig()
	for key, value := range map[string]any{
		"ai.model":                        d.AI.Model,
		"ai.max_tokens":                   d.AI.MaxTokens,
		"ai.max_retries":                  d.AI.MaxRetries,
		"ai.timeout":                      d.AI.Timeout,
		"ai.backoff_base":                 d.AI.BackoffBase,
		"ai.backoff_max":                  d.AI.BackoffMax,
		"scanner.min_chunk_length":        d.Scanner.MinChunkLength,
		"scanner.max_transitions":         d.Scanner.MaxTransitions,
		"scanner.max_concurrency":         d.Scanner.MaxConcurrency,
		"scanner.max_mutations_per_chunk": d.Scanner.MaxMutationsPerChunk,
		"split.chunk_size":                d.Split.ChunkSize,
		"split.chunk_overlap":             d.Split.ChunkOverlap,
		"conversion.backend":              string(d.Conversion.Backend),
		"store.max_results":               d.Store.MaxResults,
	} {
		v.SetDefault(key, value)
	}
}

// loadConfig decodes viper's merged settings and fills unset fields with
// the defaults.
func loadConfig() (types.PipelineConfig, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (types.PipelineConfig, error) {
	var c types.PipelineConfig
	if err := v.Unmarshal(&c); err != nil {
		return types.PipelineConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := types.ApplyDefaults(&c); err != nil {
		return types.PipelineConfig{}, err
	}
	return c, nil
}
