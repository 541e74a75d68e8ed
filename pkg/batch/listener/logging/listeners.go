// Package logging provides listeners that log job and step lifecycle events.
package logging

import (
	"context"
	"time"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	logger "github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

type JobListener struct{}

var _ port.JobExecutionListener = (*JobListener)(nil)

func NewJobListener() *JobListener { return &JobListener{} }

func (l *JobListener) BeforeJob(ctx context.Context, je *model.JobExecution) {
	logger.Infof("Job '%s' starting (Execution ID: %s, restart count: %d, parameters: %s).",
		je.JobName, je.ID, je.RestartCount, je.Parameters)
}

func (l *JobListener) AfterJob(ctx context.Context, je *model.JobExecution) {
	var elapsed time.Duration
	if je.EndTime != nil {
		elapsed = je.EndTime.Sub(je.StartTime)
	}
	if je.Status == model.BatchStatusFailed {
		logger.Errorf("Job '%s' failed after %s (Execution ID: %s): %v", je.JobName, elapsed, je.ID, je.Failures)
		return
	}
	logger.Infof("Job '%s' finished with %s / %s after %s (Execution ID: %s).",
		je.JobName, je.Status, je.ExitStatus, elapsed, je.ID)
}

// StepListener logs step boundaries, chunks, skips and retries. Chunk logging
// is at DEBUG level.
type StepListener struct{}

var (
	_ port.StepExecutionListener = (*StepListener)(nil)
	_ port.ChunkListener         = (*StepListener)(nil)
	_ port.SkipListener          = (*StepListener)(nil)
	_ port.RetryListener         = (*StepListener)(nil)
)

func NewStepListener() *StepListener { return &StepListener{} }

func (l *StepListener) BeforeStep(ctx context.Context, se *model.StepExecution) {
	logger.Infof("Step '%s' starting (Execution ID: %s).", se.StepName, se.ID)
}

func (l *StepListener) AfterStep(ctx context.Context, se *model.StepExecution) {
	logger.Infof("Step '%s' finished with %s: read=%d filter=%d write=%d skip=%d commit=%d rollback=%d.",
		se.StepName, se.ExitStatus, se.ReadCount, se.FilterCount, se.WriteCount, se.SkipCount(), se.CommitCount, se.RollbackCount)
}

func (l *StepListener) BeforeChunk(ctx context.Context, se *model.StepExecution) {
	logger.Debugf("Step '%s': chunk %d starting.", se.StepName, se.CommitCount+se.RollbackCount+1)
}

func (l *StepListener) AfterChunk(ctx context.Context, se *model.StepExecution) {
	logger.Debugf("Step '%s': chunk committed (read=%d write=%d).", se.StepName, se.ReadCount, se.WriteCount)
}

func (l *StepListener) AfterChunkError(ctx context.Context, se *model.StepExecution, err error) {
	logger.Warnf("Step '%s': chunk rolled back: %v", se.StepName, err)
}

func (l *StepListener) OnSkipInRead(ctx context.Context, err error) {
	logger.Warnf("Step '%s': skipped a record on read: %v", stepName(ctx), err)
}

func (l *StepListener) OnSkipInProcess(ctx context.Context, item any, err error) {
	logger.Warnf("Step '%s': skipped item %v on process: %v", stepName(ctx), item, err)
}

func (l *StepListener) OnRetry(ctx context.Context, se *model.StepExecution, attempt int, err error) {
	logger.Warnf("Step '%s': attempt %d failed, retrying: %v", se.StepName, attempt, err)
}

func stepName(ctx context.Context) string {
	if se, ok := port.StepExecutionFromContext(ctx); ok {
		return se.StepName
	}
	return "?"
}
