// Package retry decides whether a failed tasklet invocation is attempted again, and how long to wait first.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/kangwooc/spring-batch/pkg/batch/core/config"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

// Policy is consulted after every failed attempt.
type Policy interface {
	// ShouldRetry reports whether another attempt follows.
	// attempt: the number of attempts made so far, starting at 1.
	ShouldRetry(attempt int, err error) bool
	// Backoff is the delay before attempt+1.
	Backoff(attempt int) time.Duration
}

// Backoff computes a delay for an attempt number.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// FixedBackoff waits the same interval before every retry.
type FixedBackoff time.Duration

func (b FixedBackoff) Delay(int) time.Duration { return time.Duration(b) }

// ExponentialBackoff multiplies Initial by Factor after each attempt, capped at Max.
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}
	d := time.Duration(float64(b.Initial) * math.Pow(factor, float64(attempt-1)))
	if b.Max > 0 && (d > b.Max || d < 0) {
		return b.Max
	}
	return d
}

// SimpleRetryPolicy retries up to MaxAttempts attempts in total. When RetryableTypes is
// empty every error is retried; otherwise only errors flagged retryable or matching one
// of the registered type names are.
type SimpleRetryPolicy struct {
	MaxAttempts    int
	RetryableTypes []string
	BackoffPolicy  Backoff
}

// NewSimpleRetryPolicy returns a policy with no backoff.
func NewSimpleRetryPolicy(maxAttempts int, retryableTypes ...string) *SimpleRetryPolicy {
	return &SimpleRetryPolicy{MaxAttempts: maxAttempts, RetryableTypes: retryableTypes, BackoffPolicy: FixedBackoff(0)}
}

// NewPolicyFromConfig builds an exponential backoff policy from batch.retry.
func NewPolicyFromConfig(cfg config.RetryConfig) *SimpleRetryPolicy {
	return &SimpleRetryPolicy{
		MaxAttempts:    cfg.MaxAttempts,
		RetryableTypes: cfg.RetryableExceptions,
		BackoffPolicy: ExponentialBackoff{
			Initial: time.Duration(cfg.InitialInterval) * time.Millisecond,
			Max:     time.Duration(cfg.MaxInterval) * time.Millisecond,
			Factor:  cfg.Factor,
		},
	}
}

func (p *SimpleRetryPolicy) ShouldRetry(attempt int, err error) bool {
	if err == nil || attempt >= p.MaxAttempts {
		return false
	}
	if len(p.RetryableTypes) == 0 {
		return true
	}
	if be, ok := err.(*exception.BatchError); ok && be.IsRetryable() {
		return true
	}
	for _, typeName := range p.RetryableTypes {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}
	return false
}

func (p *SimpleRetryPolicy) Backoff(attempt int) time.Duration {
	if p.BackoffPolicy == nil {
		return 0
	}
	return p.BackoffPolicy.Delay(attempt)
}

// NeverRetryPolicy fails on the first error.
type NeverRetryPolicy struct{}

func (NeverRetryPolicy) ShouldRetry(int, error) bool { return false }
func (NeverRetryPolicy) Backoff(int) time.Duration   { return 0 }

// Wait sleeps for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var (
	_ Policy = (*SimpleRetryPolicy)(nil)
	_ Policy = NeverRetryPolicy{}
)
