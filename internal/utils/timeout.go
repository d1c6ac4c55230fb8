package utils

import (
	"context"
	"time"
)

// StepFunc defines the signature for pipeline steps run under a deadline.
type StepFunc[T any] func(ctx context.Context) (T, error)

// WithStepTimeout executes one pipeline step with its own deadline, so a
// hung upstream cannot stall the whole job. Each attempt runs exactly once;
// recovery from a failed step is the user's retry, not ours.
func WithStepTimeout[T any](ctx context.Context, timeout time.Duration, step StepFunc[T]) (T, error) {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return step(stepCtx)
}
