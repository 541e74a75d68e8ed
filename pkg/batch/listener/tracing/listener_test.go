package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
	"github.com/kangwooc/spring-batch/pkg/batch/listener/tracing"
)

type event struct {
	name  string
	attrs map[string]any
}

type recordingTracer struct {
	metrics.NoOpTracer
	events []event
}

func (r *recordingTracer) RecordEvent(ctx context.Context, name string, attrs map[string]any) {
	r.events = append(r.events, event{name, attrs})
}

func newStep() *model.StepExecution {
	params := model.NewJobParameters()
	return model.NewStepExecution("load", model.NewJobExecution(model.NewJobInstance("importJob", params), params))
}

func TestStepEventListener_RecordsChunkAndRetryEvents(t *testing.T) {
	tracer := &recordingTracer{}
	l := tracing.NewStepEventListener(tracer)
	se := newStep()
	ctx := context.Background()

	l.BeforeStep(ctx, se)
	se.CommitCount, se.ReadCount, se.WriteCount = 1, 10, 9
	l.AfterChunk(ctx, se)
	l.AfterChunkError(ctx, se, errors.New("deadlock"))
	l.OnRetry(ctx, se, 2, errors.New("timeout"))

	require.Len(t, tracer.events, 3, "a fresh step has nothing to restore")
	assert.Equal(t, tracing.EventChunkCommit, tracer.events[0].name)
	assert.Equal(t, 9, tracer.events[0].attrs["write"])
	assert.Equal(t, tracing.EventChunkRollback, tracer.events[1].name)
	assert.Equal(t, tracing.EventRetry, tracer.events[2].name)
	assert.Equal(t, 2, tracer.events[2].attrs["attempt"])
}

func TestStepEventListener_MarksRestoredStep(t *testing.T) {
	tracer := &recordingTracer{}
	se := newStep()
	se.ExecutionContext.Put("reader.read.count", 20)

	tracing.NewStepEventListener(tracer).BeforeStep(context.Background(), se)

	require.Len(t, tracer.events, 1)
	assert.Equal(t, tracing.EventStepRestored, tracer.events[0].name)
}
