package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	metrics "github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
)

// TracerName is the instrumentation scope of batch spans.
const TracerName = "github.com/kangwooc/spring-batch/pkg/batch"

// OpenTelemetryTracer creates one span per job execution and one child span per
// step execution.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)

func NewOpenTelemetryTracer(provider trace.TracerProvider) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: provider.Tracer(TracerName)}
}

func (t *OpenTelemetryTracer) StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "job "+execution.JobName,
		trace.WithAttributes(
			attribute.String("batch.job.name", execution.JobName),
			attribute.String("batch.job.execution_id", execution.ID),
			attribute.Int("batch.job.restart_count", execution.RestartCount),
		))
	return ctx, func() {
		endSpan(span, execution.Status, execution.ExitStatus, execution.Failures)
	}
}

func (t *OpenTelemetryTracer) StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "step "+execution.StepName,
		trace.WithAttributes(
			attribute.String("batch.step.name", execution.StepName),
			attribute.String("batch.step.execution_id", execution.ID),
		))
	return ctx, func() {
		span.SetAttributes(
			attribute.Int("batch.step.read_count", execution.ReadCount),
			attribute.Int("batch.step.write_count", execution.WriteCount),
			attribute.Int("batch.step.commit_count", execution.CommitCount),
			attribute.Int("batch.step.rollback_count", execution.RollbackCount),
		)
		endSpan(span, execution.Status, execution.ExitStatus, execution.Failures)
	}
}

func endSpan(span trace.Span, status model.BatchStatus, exit model.ExitStatus, failures model.FailureList) {
	span.SetAttributes(
		attribute.String("batch.status", string(status)),
		attribute.String("batch.exit_status", string(exit)),
		attribute.Int("batch.failure_count", len(failures)),
	)
	if status == model.BatchStatusFailed {
		span.SetStatus(codes.Error, string(exit))
	}
	span.End()
}

// RecordError records err on the span of ctx and marks it failed.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("batch.module", module)))
	span.SetStatus(codes.Error, err.Error())
}

func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]any) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

func toAttributes(m map[string]any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		case error:
			attrs = append(attrs, attribute.String(k, val.Error()))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(val)))
		}
	}
	return attrs
}
