// Package retry runs operations with exponential backoff on top of avast/retry-go.
package retry

import (
	"context"
	"time"

	retrygo "github.com/avast/retry-go/v4"
	"github.com/goran-ethernal/ChainDemux/pkg/config"
)

// Retrier executes an operation until it succeeds, returns a non-retryable error,
// runs out of attempts, or ctx is done.
type Retrier interface {
	Execute(ctx context.Context, operation func() error) error
}

// Option configures a Retrier.
type Option func(*retrier)

// WithRetryIf limits retries to errors for which fn returns true. Other errors are returned immediately.
func WithRetryIf(fn func(error) bool) Option {
	return func(r *retrier) {
		r.retryIf = fn
	}
}

// WithOnRetry registers a callback invoked before every retry with the attempt number (starting at 1).
func WithOnRetry(fn func(attempt uint, err error)) Option {
	return func(r *retrier) {
		r.onRetry = fn
	}
}

type retrier struct {
	attempts   uint
	delay      time.Duration
	maxDelay   time.Duration
	multiplier float64
	retryIf    func(error) bool
	onRetry    func(uint, error)
}

var _ Retrier = (*retrier)(nil)

// New builds a Retrier from cfg. A nil cfg uses the defaults of config.RetryConfig.
func New(cfg *config.RetryConfig, opts ...Option) Retrier {
	if cfg == nil {
		cfg = &config.RetryConfig{}
	}
	c := *cfg
	c.ApplyDefaults()

	r := &retrier{
		attempts:   uint(c.MaxAttempts), //nolint:gosec
		delay:      c.InitialBackoff.Duration,
		maxDelay:   c.MaxBackoff.Duration,
		multiplier: c.BackoffMultiplier,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Execute implements Retrier.
func (r *retrier) Execute(ctx context.Context, operation func() error) error {
	options := []retrygo.Option{
		retrygo.Attempts(r.attempts),
		retrygo.Delay(r.delay),
		retrygo.MaxDelay(r.maxDelay),
		retrygo.DelayType(r.backoff),
		retrygo.LastErrorOnly(true),
		retrygo.Context(ctx),
		retrygo.OnRetry(func(n uint, err error) {
			RetriesInc()
			if r.onRetry != nil {
				r.onRetry(n+1, err)
			}
		}),
	}

	if r.retryIf != nil {
		options = append(options, retrygo.RetryIf(r.retryIf))
	}

	return retrygo.Do(operation, options...)
}

// backoff grows the delay by the configured multiplier per attempt, capped at maxDelay.
func (r *retrier) backoff(n uint, _ error, _ *retrygo.Config) time.Duration {
	d := float64(r.delay)
	for range n {
		d *= r.multiplier
		if d >= float64(r.maxDelay) {
			return r.maxDelay
		}
	}

	return time.Duration(d)
}
