// Package retry wraps fallible operations with bounded exponential backoff.
// The wrapper never synthesizes errors of its own: on exhaustion or a
// non-retryable classification the operation's original error is returned
// unchanged.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"igcrawler/pkg/logger"
)

// Policy holds the backoff parameters for a retried operation.
type Policy struct {
	// MaxRetries is the number of re-invocations after the first attempt,
	// so MaxRetries+1 attempts happen in total.
	MaxRetries int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// Multiplier grows the delay after each retry. Must be > 1.
	Multiplier float64
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
	// Jitter scales each delay by a uniform random factor in [0.5, 1.5).
	Jitter bool
}

// DefaultPolicy returns the backoff parameters used for account loading.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: 5 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     60 * time.Second,
		Jitter:       true,
	}
}

// Delay computes the backoff delay for the given zero-based attempt:
// min(InitialDelay * Multiplier^attempt, MaxDelay), jittered when enabled.
func (p Policy) Delay(attempt int) time.Duration {
	base := math.Min(
		float64(p.InitialDelay)*math.Pow(p.Multiplier, float64(attempt)),
		float64(p.MaxDelay),
	)
	if p.Jitter {
		base *= 0.5 + rand.Float64()
	}
	return time.Duration(base)
}

// Config holds a policy together with the hooks the retrier consults.
type Config struct {
	Policy Policy
	// RetryIf decides whether a failure is worth retrying. A nil predicate
	// retries everything.
	RetryIf func(error) bool
	// OnRetry is called before each backoff wait.
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// Do runs op, retrying retryable failures with backoff until the policy is
// exhausted. The delay is only incurred between attempts, never after a
// success or a terminal failure.
func Do(ctx context.Context, op func() error, cfg *Config) error {
	if cfg == nil {
		cfg = &Config{Policy: DefaultPolicy()}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			if attempt > 0 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt + 1,
				})
			}
			return nil
		}

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			log.DebugWithFields("error is not retryable", map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}

		if attempt == cfg.Policy.MaxRetries {
			log.ErrorWithFields("retries exhausted", map[string]interface{}{
				"attempts": attempt + 1,
				"error":    err.Error(),
			})
			return err
		}

		delay := cfg.Policy.Delay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt + 1,
			"max_attempts": cfg.Policy.MaxRetries + 1,
			"delay_ms":     delay.Milliseconds(),
			"error":        err.Error(),
		})

		if werr := Wait(ctx, delay); werr != nil {
			return werr
		}
	}
}

// DoWithResult runs an operation that returns a value, with the same retry
// semantics as Do.
func DoWithResult[T any](ctx context.Context, op func() (T, error), cfg *Config) (T, error) {
	var result T
	err := Do(ctx, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)
	return result, err
}

// Wait sleeps for delay or until the context is cancelled.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
