// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"

	"dario.cat/mergo"
)

// AIConfig holds settings for calls to the extraction model.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens caps each response (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Timeout bounds a single call attempt (default 2m).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// BackoffBase is the first retry delay; it doubles per attempt (default 1s).
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base" mapstructure:"backoff_base"`

	// BackoffMax caps a single retry delay (default 30s).
	BackoffMax time.Duration `json:"backoff_max" yaml:"backoff_max" mapstructure:"backoff_max"`
}

// ScannerConfig holds settings for the extraction state machine.
type ScannerConfig struct {
	// MinChunkLength is the minimum queued chunk length in characters (default 500).
	MinChunkLength int `json:"min_chunk_length" yaml:"min_chunk_length" mapstructure:"min_chunk_length"`

	// MaxTransitions caps state machine transitions per run. Zero sizes the
	// cap to the queue: the 3N+3 transitions N chunks need plus 1000.
	MaxTransitions int `json:"max_transitions" yaml:"max_transitions" mapstructure:"max_transitions"`

	// MaxConcurrency limits parallel work items for one chunk (default 4).
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency" mapstructure:"max_concurrency"`

	// MaxMutationsPerChunk is the guideline given to the model; exceeding it
	// is logged, not rejected (default 3).
	MaxMutationsPerChunk int `json:"max_mutations_per_chunk" yaml:"max_mutations_per_chunk" mapstructure:"max_mutations_per_chunk"`
}

// SplitConfig holds settings for Markdown splitting.
type SplitConfig struct {
	// ChunkSize is the largest section kept whole (default 10000).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size" mapstructure:"chunk_size"`

	// ChunkOverlap is the overlap used when an oversized section is split (default 0).
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
}

// ConversionBackend identifies the document-to-text tool.
type ConversionBackend string

const (
	BackendPDFText    ConversionBackend = "pdftext"
	BackendMarkitdown ConversionBackend = "markitdown"
)

// ConversionConfig holds settings for PDF conversion.
type ConversionConfig struct {
	// Backend selects the conversion tool: pdftext or markitdown.
	Backend ConversionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
}

// StoreConfig holds settings for the run store.
type StoreConfig struct {
	// Dir is the base directory for scan output (contains results/, index/).
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// LogConfig selects log verbosity and format.
type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
	JSON  bool   `json:"json" yaml:"json" mapstructure:"json"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	AI         AIConfig         `json:"ai" yaml:"ai" mapstructure:"ai"`
	Scanner    ScannerConfig    `json:"scanner" yaml:"scanner" mapstructure:"scanner"`
	Split      SplitConfig      `json:"split" yaml:"split" mapstructure:"split"`
	Conversion ConversionConfig `json:"conversion" yaml:"conversion" mapstructure:"conversion"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultPipelineConfig returns the configuration used when nothing is set.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		AI: AIConfig{
			Model:       "claude-sonnet-4-5-20250929",
			MaxTokens:   4096,
			MaxRetries:  3,
			Timeout:     2 * time.Minute,
			BackoffBase: time.Second,
			BackoffMax:  30 * time.Second,
		},
		Scanner: ScannerConfig{
			MinChunkLength:       500,
			MaxConcurrency:       4,
			MaxMutationsPerChunk: 3,
		},
		Split: SplitConfig{
			ChunkSize: 10000,
		},
		Conversion: ConversionConfig{
			Backend: BackendPDFText,
		},
		Store: StoreConfig{
			Dir:        "scans",
			MaxResults: 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyDefaults fills every zero field of cfg from DefaultPipelineConfig.
func ApplyDefaults(cfg *PipelineConfig) error {
	if err := mergo.Merge(cfg, DefaultPipelineConfig()); err != nil {
		return fmt.Errorf("applying config defaults: %w", err)
	}
	return nil
}
