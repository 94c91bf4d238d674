// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidOutput marks a response that does not match the expected
	// schema. It is retried like any transient failure.
	ErrInvalidOutput = errors.New("model output does not match the expected schema")

	// ErrTimeout marks an attempt that exceeded the per-call timeout.
	ErrTimeout = errors.New("model call timed out")
)

// CallError is returned when a call fails for good: retries are exhausted or
// the failure is not retryable. Err is the last underlying failure.
type CallError struct {
	Prompt   string
	Attempts int
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s call failed after %d attempt(s): %v", e.Prompt, e.Attempts, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// temporary is implemented by backend errors that know whether they are
// worth retrying.
type temporary interface {
	Temporary() bool
}

// retryable classifies a failed attempt. Cancellation of the caller's
// context stops retries; backend errors decide for themselves; everything
// else (timeouts, transport failures, invalid output) is transient.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return true
}
