// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sethvargo/go-retry"

	"github.com/pdiddy/paper-scanner/internal/metrics"
)

// Call renders p with params and the schema of T, sends it to the client's
// backend, and decodes the answer into T. Responses failing JSON decoding,
// struct validation, or any of checks are retried like transient errors.
// When the call fails for good the error is a *CallError.
func Call[T any](ctx context.Context, c *Client, p Prompt, params map[string]string, checks ...func(T) error) (T, error) {
	var zero T

	instructions, err := FormatInstructions[T]()
	if err != nil {
		return zero, err
	}
	prompt, err := p.Render(params, instructions)
	if err != nil {
		return zero, err
	}

	backoff := retry.WithMaxRetries(uint64(c.maxRetries), // #nosec G115 -- clamped to >= 0 in NewClient
		retry.WithCappedDuration(c.backoffMax, retry.NewExponential(c.backoffBase)))

	var (
		out      T
		attempts int
	)
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempts++
		if attempts > 1 {
			c.metrics.ObserveRetry(p.Name)
		}

		raw, err := c.complete(ctx, prompt)
		if err == nil {
			out, err = decode(raw, c.validate, checks)
		}
		if err == nil {
			return nil
		}

		if !retryable(ctx, err) {
			return err
		}
		c.log.Warn("model call failed", "prompt", p.Name, "attempt", attempts, "err", err)
		return retry.RetryableError(err)
	})
	if err != nil {
		c.metrics.ObserveCall(p.Name, metrics.OutcomeFailure)
		return zero, &CallError{Prompt: p.Name, Attempts: attempts, Err: err}
	}

	c.metrics.ObserveCall(p.Name, metrics.OutcomeSuccess)
	c.log.Debug("model call succeeded", "prompt", p.Name, "attempts", attempts)
	return out, nil
}

// complete runs one backend attempt under the per-call timeout.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout <= 0 {
		return c.backend.Complete(ctx, prompt)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.backend.Complete(attemptCtx, prompt)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s: %w", ErrTimeout, c.timeout, err)
	}
	return raw, err
}
