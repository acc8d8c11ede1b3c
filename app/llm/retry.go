package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// BackoffPolicy controls the retry loop around a provider call: exponential
// waits multiplier*2^attempt, clamped to [MinWait, MaxWait], for at most
// MaxAttempts total attempts.
type BackoffPolicy struct {
	MaxAttempts int
	Multiplier  time.Duration
	MinWait     time.Duration
	MaxWait     time.Duration
}

func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: 3,
		Multiplier:  1 * time.Second,
		MinWait:     4 * time.Second,
		MaxWait:     30 * time.Second,
	}
}

// Wait returns the delay before the given retry (0-based).
func (p BackoffPolicy) Wait(retry int) time.Duration {
	wait := p.Multiplier * (1 << retry)
	if wait < p.MinWait {
		wait = p.MinWait
	}
	if wait > p.MaxWait {
		wait = p.MaxWait
	}
	return wait
}

var _ Provider = (*RetryingProvider)(nil)

// RetryingProvider wraps a provider with bounded retry. Transient failures
// (transport errors, rate limits, server errors) are retried per the policy;
// permanent API errors and the final failure propagate to the caller.
type RetryingProvider struct {
	provider Provider
	policy   BackoffPolicy
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewRetryingProvider(provider Provider, policy BackoffPolicy) *RetryingProvider {
	return &RetryingProvider{
		provider: provider,
		policy:   policy,
		sleep:    sleepCtx,
	}
}

func (r *RetryingProvider) Generate(ctx context.Context, prompt, system string, maxTokens int) (string, int, error) {
	var lastErr error

	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := r.policy.Wait(attempt - 1)
			slog.Warn("Retrying generation", "attempt", attempt+1, "max_attempts", r.policy.MaxAttempts, "wait", wait.String(), "error", lastErr)
			if err := r.sleep(ctx, wait); err != nil {
				return "", 0, err
			}
		}

		text, tokens, err := r.provider.Generate(ctx, prompt, system, maxTokens)
		if err == nil {
			return text, tokens, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return "", 0, err
		}
	}

	return "", 0, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
