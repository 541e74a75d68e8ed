// Package skip decides whether a failing item is discarded instead of failing its step.
package skip

import (
	"errors"

	"github.com/kangwooc/spring-batch/pkg/batch/core/config"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

// Policy is consulted for every read and process error. Write errors never reach it.
type Policy interface {
	// ShouldSkip reports whether item can be discarded.
	// item: nil for read errors.
	// skipCount: the step's skips so far, excluding this one.
	ShouldSkip(item any, err error, skipCount int) bool
}

// LimitCheckingSkipPolicy skips up to Limit items. When SkippableTypes is empty any
// error qualifies; otherwise only errors flagged skippable or matching one of the
// registered type names do.
type LimitCheckingSkipPolicy struct {
	Limit          int
	SkippableTypes []string
}

func NewLimitCheckingSkipPolicy(limit int, skippableTypes ...string) *LimitCheckingSkipPolicy {
	return &LimitCheckingSkipPolicy{Limit: limit, SkippableTypes: skippableTypes}
}

// NewPolicyFromConfig builds the policy from batch.skip. A zero limit never skips.
func NewPolicyFromConfig(cfg config.SkipConfig) Policy {
	if cfg.SkipLimit <= 0 {
		return NeverSkipPolicy{}
	}
	return NewLimitCheckingSkipPolicy(cfg.SkipLimit, cfg.SkippableExceptions...)
}

func (p *LimitCheckingSkipPolicy) ShouldSkip(item any, err error, skipCount int) bool {
	if err == nil || skipCount >= p.Limit {
		return false
	}
	if len(p.SkippableTypes) == 0 {
		return true
	}
	var be *exception.BatchError
	if errors.As(err, &be) && be.IsSkippable() {
		return true
	}
	for _, typeName := range p.SkippableTypes {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}
	return false
}

// NeverSkipPolicy fails the step on the first item error.
type NeverSkipPolicy struct{}

func (NeverSkipPolicy) ShouldSkip(any, error, int) bool { return false }

// Func adapts a function to Policy.
type Func func(item any, err error, skipCount int) bool

func (f Func) ShouldSkip(item any, err error, skipCount int) bool { return f(item, err, skipCount) }

var (
	_ Policy = (*LimitCheckingSkipPolicy)(nil)
	_ Policy = NeverSkipPolicy{}
)
