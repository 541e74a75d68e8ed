// Package step holds what tasklet and chunk steps share: construction options,
// listener fan-out and the begin/finish bookkeeping of a StepExecution.
package step

import (
	"database/sql"
	"strings"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	metrics "github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/retry"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/skip"
)

// Options configures a step. The zero value is completed by NewOptions.
type Options struct {
	StepListeners        []port.StepExecutionListener
	ChunkListeners       []port.ChunkListener
	SkipListeners        []port.SkipListener
	RetryListeners       []port.RetryListener
	SkipPolicy           skip.Policy
	RetryPolicy          retry.Policy
	MetricRecorder       metrics.MetricRecorder
	Tracer               metrics.Tracer
	AllowStartIfComplete bool
	TxOptions            *sql.TxOptions
}

type Option func(*Options)

// NewOptions applies opts over defaults that never skip, never retry and record nothing.
func NewOptions(opts ...Option) Options {
	o := Options{
		SkipPolicy:     skip.NeverSkipPolicy{},
		RetryPolicy:    retry.NeverRetryPolicy{},
		MetricRecorder: metrics.NewNoOpMetricRecorder(),
		Tracer:         metrics.NewNoOpTracer(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithListener registers l for every listener interface it implements.
func WithListener(l any) Option {
	return func(o *Options) {
		if v, ok := l.(port.StepExecutionListener); ok {
			o.StepListeners = append(o.StepListeners, v)
		}
		if v, ok := l.(port.ChunkListener); ok {
			o.ChunkListeners = append(o.ChunkListeners, v)
		}
		if v, ok := l.(port.SkipListener); ok {
			o.SkipListeners = append(o.SkipListeners, v)
		}
		if v, ok := l.(port.RetryListener); ok {
			o.RetryListeners = append(o.RetryListeners, v)
		}
	}
}

func WithListeners(ls ...any) Option {
	return func(o *Options) {
		for _, l := range ls {
			WithListener(l)(o)
		}
	}
}

func WithSkipPolicy(p skip.Policy) Option {
	return func(o *Options) {
		if p != nil {
			o.SkipPolicy = p
		}
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(o *Options) {
		if p != nil {
			o.RetryPolicy = p
		}
	}
}

func WithMetricRecorder(r metrics.MetricRecorder) Option {
	return func(o *Options) {
		if r != nil {
			o.MetricRecorder = r
		}
	}
}

func WithTracer(t metrics.Tracer) Option {
	return func(o *Options) {
		if t != nil {
			o.Tracer = t
		}
	}
}

// WithAllowStartIfComplete makes the step run again on restart even after it completed.
func WithAllowStartIfComplete(allow bool) Option {
	return func(o *Options) { o.AllowStartIfComplete = allow }
}

// WithIsolationLevel sets the isolation level of every transaction the step begins.
// Unknown names leave the driver default in place.
func WithIsolationLevel(level string) Option {
	return func(o *Options) {
		if lvl, ok := isolationLevels[strings.ToUpper(strings.TrimSpace(level))]; ok {
			o.TxOptions = &sql.TxOptions{Isolation: lvl}
		}
	}
}

var isolationLevels = map[string]sql.IsolationLevel{
	"DEFAULT":          sql.LevelDefault,
	"READ_UNCOMMITTED": sql.LevelReadUncommitted,
	"READ_COMMITTED":   sql.LevelReadCommitted,
	"WRITE_COMMITTED":  sql.LevelWriteCommitted,
	"REPEATABLE_READ":  sql.LevelRepeatableRead,
	"SERIALIZABLE":     sql.LevelSerializable,
}

// BeginOptions returns the options to pass to TransactionManager.Begin.
func (o Options) BeginOptions() []*sql.TxOptions {
	if o.TxOptions == nil {
		return nil
	}
	return []*sql.TxOptions{o.TxOptions}
}
