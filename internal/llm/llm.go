// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is the boundary to the extraction model. A Client renders a
// prompt template together with the JSON schema of the expected response,
// calls a Backend under a per-attempt timeout, decodes and validates the
// answer, and retries transient failures with exponential backoff.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/paper-scanner/internal/logger"
	"github.com/pdiddy/paper-scanner/internal/metrics"
	"github.com/pdiddy/paper-scanner/pkg/types"
)

// Backend sends one rendered prompt to a model and returns its raw text.
// Implementations do not retry schema failures; the Client does.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f BackendFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Prompt is a named text/template. Parameters are addressed by key
// ({{.text}}); the response schema is available as {{.format_instructions}}.
type Prompt struct {
	Name string
	tmpl *template.Template
}

// NewPrompt parses text into a Prompt. It panics on a malformed template, so
// prompts are declared as package variables.
func NewPrompt(name, text string) Prompt {
	return Prompt{
		Name: name,
		tmpl: template.Must(template.New(name).Option("missingkey=error").Parse(text)),
	}
}

// Render executes the template with params plus the format instructions.
func (p Prompt) Render(params map[string]string, formatInstructions string) (string, error) {
	data := make(map[string]string, len(params)+1)
	for k, v := range params {
		data[k] = v
	}
	data[formatInstructionsKey] = formatInstructions

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", p.Name, err)
	}
	return buf.String(), nil
}

const formatInstructionsKey = "format_instructions"

// backoffBase is the first retry delay when the config leaves it unset.
// Tests override this to avoid real sleeps.
var backoffBase = time.Second

const (
	defaultMaxRetries = 3
	defaultBackoffMax = 30 * time.Second
)

// Client invokes prompts against a Backend with validation and retries.
// It is safe for concurrent use.
type Client struct {
	backend     Backend
	maxRetries  int
	timeout     time.Duration
	backoffBase time.Duration
	backoffMax  time.Duration
	validate    *validator.Validate
	log         logger.Logger
	metrics     *metrics.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the client's logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records call outcomes and retries on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient builds a Client from cfg. A zero MaxRetries uses the default (3);
// a negative one disables retries. A zero Timeout leaves attempts unbounded.
func NewClient(backend Backend, cfg types.AIConfig, opts ...Option) *Client {
	c := &Client{
		backend:     backend,
		maxRetries:  cfg.MaxRetries,
		timeout:     cfg.Timeout,
		backoffBase: cfg.BackoffBase,
		backoffMax:  cfg.BackoffMax,
		validate:    validator.New(),
		log:         logger.NewNop(),
	}
	switch {
	case c.maxRetries == 0:
		c.maxRetries = defaultMaxRetries
	case c.maxRetries < 0:
		c.maxRetries = 0
	}
	if c.backoffBase <= 0 {
		c.backoffBase = backoffBase
	}
	if c.backoffMax <= 0 {
		c.backoffMax = defaultBackoffMax
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
