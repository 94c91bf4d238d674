// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-scanner/internal/httputil"
	"github.com/pdiddy/paper-scanner/internal/metrics"
	"github.com/pdiddy/paper-scanner/pkg/types"
)

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

type answer struct {
	Title string   `json:"title" validate:"required" jsonschema:"description=Answer title"`
	Tags  []string `json:"tags,omitempty"`
}

var testPrompt = NewPrompt("test", "Question: {{.question}}\n\n{{.format_instructions}}")

// scriptedBackend returns its replies in order; the last one repeats.
type scriptedBackend struct {
	replies []reply
	calls   int32
	prompts []string
}

type reply struct {
	text string
	err  error
}

func (s *scriptedBackend) Complete(_ context.Context, prompt string) (string, error) {
	n := int(atomic.AddInt32(&s.calls, 1))
	s.prompts = append(s.prompts, prompt)
	if n > len(s.replies) {
		n = len(s.replies)
	}
	r := s.replies[n-1]
	return r.text, r.err
}

func newTestClient(b Backend, retries int, opts ...Option) *Client {
	return NewClient(b, types.AIConfig{MaxRetries: retries}, opts...)
}

func TestCallDecodesAndRendersPrompt(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{text: "```json\n{\"title\": \"Attention\", \"tags\": [\"nlp\"]}\n```"}}}
	client := newTestClient(backend, 2)

	got, err := Call[answer](context.Background(), client, testPrompt, map[string]string{"question": "what?"})
	require.NoError(t, err)

	assert.Equal(t, answer{Title: "Attention", Tags: []string{"nlp"}}, got)
	require.Len(t, backend.prompts, 1)
	assert.Contains(t, backend.prompts[0], "Question: what?")
	assert.Contains(t, backend.prompts[0], `"title"`)
	assert.Contains(t, backend.prompts[0], "Answer title")
}

func TestCallRetries(t *testing.T) {
	tests := []struct {
		name      string
		replies   []reply
		retries   int
		checks    []func(answer) error
		wantErr   bool
		wantCalls int32
		wantIs    error
	}{
		{
			name:      "malformed JSON then success",
			replies:   []reply{{text: "not json"}, {text: `{"title": "ok"}`}},
			retries:   3,
			wantCalls: 2,
		},
		{
			name:      "missing required field then success",
			replies:   []reply{{text: `{"tags": ["x"]}`}, {text: `{"title": "ok"}`}},
			retries:   3,
			wantCalls: 2,
		},
		{
			name:      "transient backend error then success",
			replies:   []reply{{err: errors.New("connection reset")}, {text: `{"title": "ok"}`}},
			retries:   3,
			wantCalls: 2,
		},
		{
			name:      "exhausts retries on invalid output",
			replies:   []reply{{text: `{}`}},
			retries:   2,
			wantErr:   true,
			wantCalls: 3,
			wantIs:    ErrInvalidOutput,
		},
		{
			name:      "permanent API error is not retried",
			replies:   []reply{{err: &APIError{StatusCode: 401, Body: "bad key"}}},
			retries:   3,
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name:      "overloaded API error is retried",
			replies:   []reply{{err: &APIError{StatusCode: 529}}, {text: `{"title": "ok"}`}},
			retries:   3,
			wantCalls: 2,
		},
		{
			name:    "failed check is retried",
			replies: []reply{{text: `{"title": "too long title"}`}, {text: `{"title": "ok"}`}},
			retries: 3,
			checks: []func(answer) error{func(a answer) error {
				if len(a.Title) > 5 {
					return fmt.Errorf("title %q too long", a.Title)
				}
				return nil
			}},
			wantCalls: 2,
		},
		{
			name:      "negative retries means a single attempt",
			replies:   []reply{{text: "nope"}},
			retries:   -1,
			wantErr:   true,
			wantCalls: 1,
			wantIs:    ErrInvalidOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &scriptedBackend{replies: tt.replies}
			client := newTestClient(backend, tt.retries)

			got, err := Call[answer](context.Background(), client, testPrompt, map[string]string{"question": "q"}, tt.checks...)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&backend.calls))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "ok", got.Title)
				return
			}

			require.Error(t, err)
			var callErr *CallError
			require.ErrorAs(t, err, &callErr)
			assert.Equal(t, "test", callErr.Prompt)
			assert.Equal(t, int(tt.wantCalls), callErr.Attempts)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestCallPerAttemptTimeout(t *testing.T) {
	var calls int32
	backend := BackendFunc(func(ctx context.Context, _ string) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return `{"title": "ok"}`, nil
	})
	client := NewClient(backend, types.AIConfig{MaxRetries: 2, Timeout: 20 * time.Millisecond})

	got, err := Call[answer](context.Background(), client, testPrompt, map[string]string{"question": "q"})
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Title)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCallTimeoutExhaustion(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	client := NewClient(backend, types.AIConfig{MaxRetries: 1, Timeout: 10 * time.Millisecond})

	_, err := Call[answer](context.Background(), client, testPrompt, map[string]string{"question": "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestCallStopsOnCancelledContext(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{text: "garbage"}}}
	client := newTestClient(backend, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Call[answer](ctx, client, testPrompt, map[string]string{"question": "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&backend.calls))
}

func TestCallRecordsMetrics(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	backend := &scriptedBackend{replies: []reply{{text: "x"}, {text: `{"title": "ok"}`}}}
	client := newTestClient(backend, 3, WithMetrics(m))

	_, err = Call[answer](context.Background(), client, testPrompt, map[string]string{"question": "q"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRetries.WithLabelValues("test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMCalls.WithLabelValues("test", metrics.OutcomeSuccess)))
}

func TestRenderMissingKey(t *testing.T) {
	_, err := testPrompt.Render(map[string]string{}, "schema")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test")
}

func TestFormatInstructions(t *testing.T) {
	text, err := FormatInstructions[types.ChunkAnalysis]()
	require.NoError(t, err)

	for _, want := range []string{"findings_updates", "new_findings", "what_to_update", "publication_date"} {
		assert.Contains(t, text, want)
	}
	again, err := FormatInstructions[types.ChunkAnalysis]()
	require.NoError(t, err)
	assert.Equal(t, text, again)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{`Here you go: {"a":{"b":2}} hope it helps`, `{"a":{"b":2}}`},
		{"no object", ""},
		{"} backwards {", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractJSON(tt.in), "input %q", tt.in)
	}
}

func TestPromptsRender(t *testing.T) {
	prompts := []struct {
		p      Prompt
		params map[string]string
	}{
		{DiscoveryPrompt, map[string]string{"text": "T", "existing_findings": "E", "max_mutations": "3"}},
		{FindingCreationPrompt, map[string]string{"text": "T", "title": "Ti", "description": "D"}},
		{FindingUpdatePrompt, map[string]string{"finding": "F", "text": "T", "what_to_update": "W"}},
		{ConsolidationPrompt, map[string]string{"findings": "F"}},
	}
	for _, tt := range prompts {
		t.Run(tt.p.Name, func(t *testing.T) {
			out, err := tt.p.Render(tt.params, "SCHEMA")
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "SCHEMA"))
		})
	}
}
