package step

import (
	"context"
	"time"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// Outcome is how the step body ended.
type Outcome int

const (
	Completed Outcome = iota
	Stopped
	Failed
)

// StopRequested reports whether the job asked to stop or the launch context is done.
// Steps sample it only between chunks or tasklet invocations.
func StopRequested(ctx context.Context, je *model.JobExecution) bool {
	return (je != nil && je.IsStopRequested()) || ctx.Err() != nil
}

// Start marks se as started, persists it and calls the BeforeStep listeners.
func Start(ctx context.Context, repo repository.JobRepository, se *model.StepExecution, o Options) error {
	se.MarkAsStarted()
	if err := repo.UpdateStepExecution(ctx, se); err != nil {
		return exception.NewBatchError(se.StepName, "failed to persist started step execution", err, false, false)
	}
	for _, l := range o.StepListeners {
		l.BeforeStep(ctx, se)
	}
	o.MetricRecorder.RecordStepStart(ctx, se)
	logger.Infof("Step '%s' started (StepExecution ID: %s).", se.StepName, se.ID)
	return nil
}

// Finish sets the terminal status of se, calls the AfterStep listeners and persists the result.
// The final update survives a cancelled ctx so a stopped launch is still recorded.
func Finish(ctx context.Context, repo repository.JobRepository, se *model.StepExecution, o Options, outcome Outcome, cause error) error {
	switch outcome {
	case Completed:
		se.MarkAsCompleted()
	case Stopped:
		se.MarkAsStopped()
	default:
		se.MarkAsFailed(cause)
		o.Tracer.RecordError(ctx, se.StepName, cause)
	}

	for _, l := range o.StepListeners {
		l.AfterStep(ctx, se)
	}

	o.MetricRecorder.RecordStepEnd(ctx, se)
	if err := repo.UpdateStepExecution(context.WithoutCancel(ctx), se); err != nil {
		logger.Errorf("Step '%s': failed to persist final state: %v", se.StepName, err)
		if cause == nil {
			cause = exception.NewBatchError(se.StepName, "failed to persist final step execution", err, false, false)
		}
	}

	logger.Infof("Step '%s' finished with status %s. %s", se.StepName, se.Status, se.DebugString())
	return cause
}

// Checkpoint persists se and its execution context inside the transaction carried by ctx.
func Checkpoint(ctx context.Context, repo repository.JobRepository, se *model.StepExecution) error {
	if err := repo.UpdateStepExecution(ctx, se); err != nil {
		return err
	}
	return repo.SaveCheckpointData(ctx, &model.CheckpointData{
		StepExecutionID:  se.ID,
		ExecutionContext: se.ExecutionContext.Copy(),
		LastUpdated:      time.Now(),
	})
}

// Snapshot records the counters and execution context of se. Calling the
// returned function puts them back after a rolled back transaction.
func Snapshot(se *model.StepExecution) (restore func()) {
	saved := *se
	saved.ExecutionContext = se.ExecutionContext.Copy()
	saved.Failures = append(model.FailureList(nil), se.Failures...)
	return func() { *se = saved }
}
