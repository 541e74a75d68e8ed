// Package tracing annotates the step spans opened by the engine with chunk and
// retry events.
package tracing

import (
	"context"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
)

// Event names added to the step span.
const (
	EventStepRestored  = "step.restored"
	EventChunkCommit   = "chunk.commit"
	EventChunkRollback = "chunk.rollback"
	EventRetry         = "step.retry"
)

type StepEventListener struct {
	tracer metrics.Tracer
}

var (
	_ port.StepExecutionListener = (*StepEventListener)(nil)
	_ port.ChunkListener         = (*StepEventListener)(nil)
	_ port.RetryListener         = (*StepEventListener)(nil)
)

func NewStepEventListener(tracer metrics.Tracer) *StepEventListener {
	return &StepEventListener{tracer: tracer}
}

// BeforeStep marks spans of steps resuming from a checkpoint.
func (l *StepEventListener) BeforeStep(ctx context.Context, se *model.StepExecution) {
	if len(se.ExecutionContext) > 0 {
		l.tracer.RecordEvent(ctx, EventStepRestored, map[string]any{"keys": len(se.ExecutionContext)})
	}
}

func (l *StepEventListener) AfterStep(ctx context.Context, se *model.StepExecution) {}

func (l *StepEventListener) BeforeChunk(ctx context.Context, se *model.StepExecution) {}

func (l *StepEventListener) AfterChunk(ctx context.Context, se *model.StepExecution) {
	l.tracer.RecordEvent(ctx, EventChunkCommit, map[string]any{
		"commit": se.CommitCount,
		"read":   se.ReadCount,
		"write":  se.WriteCount,
	})
}

func (l *StepEventListener) AfterChunkError(ctx context.Context, se *model.StepExecution, err error) {
	l.tracer.RecordEvent(ctx, EventChunkRollback, map[string]any{"rollback": se.RollbackCount, "error": err})
}

func (l *StepEventListener) OnRetry(ctx context.Context, se *model.StepExecution, attempt int, err error) {
	l.tracer.RecordEvent(ctx, EventRetry, map[string]any{"attempt": attempt, "error": err})
}
