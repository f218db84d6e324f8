package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryPolicy decides whether and when a failed call is attempted again.
type RetryPolicy interface {
	Do(ctx context.Context, op func(ctx context.Context) error) error
}

// NoRetry runs the operation exactly once.
type NoRetry struct{}

func (NoRetry) Do(ctx context.Context, op func(ctx context.Context) error) error {
	return op(ctx)
}

// ExponentialRetry retries retryable failures with exponential backoff, up to
// MaxAttempts calls in total.
type ExponentialRetry struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Retryable overrides IsRetryable when set.
	Retryable func(error) bool
	Logger    *zap.Logger
}

func (r ExponentialRetry) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if r.MaxAttempts <= 1 {
		return op(ctx)
	}

	retryable := r.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := backoff.NewExponentialBackOff()
	if r.InitialInterval > 0 {
		b.InitialInterval = r.InitialInterval
	}
	if r.MaxInterval > 0 {
		b.MaxInterval = r.MaxInterval
	}
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.MaxAttempts-1)), ctx)

	var (
		attempt int
		lastErr error
	)
	err := backoff.RetryNotify(func() error {
		attempt++
		err := op(ctx)
		lastErr = err
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("model call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.MaxAttempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	})

	// Cancellation between attempts surfaces as the bare context error.
	if ctxErr := ctx.Err(); ctxErr != nil && lastErr != nil && errors.Is(err, ctxErr) && !errors.Is(lastErr, ctxErr) {
		return fmt.Errorf("%w: last attempt: %w", err, lastErr)
	}

	return err
}

// RetryingGenerator applies a RetryPolicy around every call of the wrapped Generator.
type RetryingGenerator struct {
	generator Generator
	policy    RetryPolicy
}

func NewRetryingGenerator(generator Generator, policy RetryPolicy) *RetryingGenerator {
	if policy == nil {
		policy = NoRetry{}
	}
	return &RetryingGenerator{generator: generator, policy: policy}
}

func (r *RetryingGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	var output string
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		output, err = r.generator.Generate(ctx, model, prompt)
		return err
	})
	if err != nil {
		return "", err
	}
	return output, nil
}
