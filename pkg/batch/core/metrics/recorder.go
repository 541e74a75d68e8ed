// Package metrics defines the observability ports of the engine: a MetricRecorder for
// counters and histograms and a Tracer for spans. Backends live in infrastructure/metrics.
package metrics

import (
	"context"
	"time"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
)

// MetricRecorder records job, step, item and chunk level measurements.
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)

	// RecordJobEnd records the end of a JobExecution with its final status and duration.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)

	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)

	// RecordStepEnd records the end of a StepExecution with its final status and duration.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)

	// RecordItemRead records count items read by stepName.
	RecordItemRead(ctx context.Context, stepName string, count int)

	// RecordItemFilter records count items dropped by the processor of stepName.
	RecordItemFilter(ctx context.Context, stepName string, count int)

	// RecordItemWrite records count items written by stepName.
	RecordItemWrite(ctx context.Context, stepName string, count int)

	// RecordItemSkip records one skipped item.
	//
	// phase: "read" or "process".
	RecordItemSkip(ctx context.Context, stepName string, phase string)

	// RecordRetry records one retried tasklet invocation.
	RecordRetry(ctx context.Context, stepName string, reason string)

	// RecordChunkCommit records a committed chunk of count items.
	RecordChunkCommit(ctx context.Context, stepName string, count int)

	// RecordChunkRollback records a rolled back chunk.
	RecordChunkRollback(ctx context.Context, stepName string)

	// RecordDuration records the execution time of a named operation.
	//
	// tags: additional attributes, e.g. {"resource": "death_note_001.txt"}.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
