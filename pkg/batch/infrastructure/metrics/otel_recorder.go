package metrics

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	metrics "github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
)

// OtelRecorder records through an OpenTelemetry Meter.
type OtelRecorder struct {
	jobs      metric.Int64Counter
	jobTime   metric.Float64Histogram
	steps     metric.Int64Counter
	stepTime  metric.Float64Histogram
	reads     metric.Int64Counter
	writes    metric.Int64Counter
	filters   metric.Int64Counter
	commits   metric.Int64Counter
	rollbacks metric.Int64Counter
	skips     metric.Int64Counter
	retries   metric.Int64Counter
	durations metric.Float64Histogram
}

var _ metrics.MetricRecorder = (*OtelRecorder)(nil)

// NewOtelRecorder creates the instruments on meter, prefixing their names with namespace.
func NewOtelRecorder(meter metric.Meter, namespace string) (*OtelRecorder, error) {
	prefix := ""
	if namespace != "" {
		prefix = namespace + "."
	}
	var errs []error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(prefix+name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(prefix+name, metric.WithDescription(desc), metric.WithUnit("s"))
		errs = append(errs, err)
		return h
	}

	r := &OtelRecorder{
		jobs:      counter("job.executions", "Job executions by final status."),
		jobTime:   histogram("job.duration", "Duration of job executions."),
		steps:     counter("step.executions", "Step executions by final status."),
		stepTime:  histogram("step.duration", "Duration of step executions."),
		reads:     counter("item.read", "Items read."),
		writes:    counter("item.write", "Items written."),
		filters:   counter("item.filter", "Items dropped by processors."),
		commits:   counter("chunk.commit", "Committed chunks."),
		rollbacks: counter("chunk.rollback", "Rolled back chunks."),
		skips:     counter("item.skip", "Skipped items by phase."),
		retries:   counter("retry", "Retried tasklet invocations."),
		durations: histogram("operation.duration", "Duration of named operations."),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

func stepAttrs(ctx context.Context, stepName string, extra ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(append([]attribute.KeyValue{
		attribute.String("job.name", jobName(ctx)),
		attribute.String("step.name", stepName),
	}, extra...)...)
}

func (r *OtelRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {}

func (r *OtelRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	attrs := metric.WithAttributes(
		attribute.String("job.name", execution.JobName),
		attribute.String("status", string(execution.Status)),
	)
	r.jobs.Add(ctx, 1, attrs)
	if d, ok := elapsed(execution.StartTime, execution.EndTime); ok {
		r.jobTime.Record(ctx, d, attrs)
	}
}

func (r *OtelRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {}

func (r *OtelRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	attrs := metric.WithAttributes(
		attribute.String("job.name", stepJobName(execution)),
		attribute.String("step.name", execution.StepName),
		attribute.String("status", string(execution.Status)),
	)
	r.steps.Add(ctx, 1, attrs)
	if d, ok := elapsed(execution.StartTime, execution.EndTime); ok {
		r.stepTime.Record(ctx, d, attrs)
	}
}

func (r *OtelRecorder) RecordItemRead(ctx context.Context, stepName string, count int) {
	r.reads.Add(ctx, int64(count), stepAttrs(ctx, stepName))
}

func (r *OtelRecorder) RecordItemFilter(ctx context.Context, stepName string, count int) {
	r.filters.Add(ctx, int64(count), stepAttrs(ctx, stepName))
}

func (r *OtelRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.writes.Add(ctx, int64(count), stepAttrs(ctx, stepName))
}

func (r *OtelRecorder) RecordItemSkip(ctx context.Context, stepName string, phase string) {
	r.skips.Add(ctx, 1, stepAttrs(ctx, stepName, attribute.String("phase", phase)))
}

func (r *OtelRecorder) RecordRetry(ctx context.Context, stepName string, reason string) {
	r.retries.Add(ctx, 1, stepAttrs(ctx, stepName))
}

func (r *OtelRecorder) RecordChunkCommit(ctx context.Context, stepName string, count int) {
	r.commits.Add(ctx, 1, stepAttrs(ctx, stepName))
}

func (r *OtelRecorder) RecordChunkRollback(ctx context.Context, stepName string) {
	r.rollbacks.Add(ctx, 1, stepAttrs(ctx, stepName))
}

func (r *OtelRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("name", name))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.durations.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
