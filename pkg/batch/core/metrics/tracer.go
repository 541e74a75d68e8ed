package metrics

import (
	"context"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
)

// Tracer starts spans around job and step executions.
type Tracer interface {
	// StartJobSpan starts a span for a JobExecution. The returned function ends it.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())

	// StartStepSpan starts a span for a StepExecution, normally as a child of the job span.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())

	// RecordError records err on the span carried by ctx.
	//
	// module: the component the error came from, e.g. "reader".
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent adds an event to the span carried by ctx.
	RecordEvent(ctx context.Context, name string, attributes map[string]any)
}
