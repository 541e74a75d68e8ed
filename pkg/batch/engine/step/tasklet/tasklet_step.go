package tasklet

import (
	"context"
	"errors"
	"fmt"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/retry"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// TaskletStep invokes a Tasklet until it returns port.Finished.
// Every invocation runs in its own transaction; a failed invocation is rolled
// back and, if the retry policy allows, repeated in a fresh transaction.
type TaskletStep struct {
	name          string
	tasklet       scope.Provider[port.Tasklet]
	jobRepository repository.JobRepository
	txManager     tx.TransactionManager
	options       step.Options
}

// NewTaskletStep creates a TaskletStep.
//
// Parameters:
//
//	name: The step name, unique within its job.
//	tasklet: Resolves the tasklet when the step starts, so step-scoped tasklets see the current parameters.
//	jobRepository: Persists the step execution after every invocation.
//	txManager: Begins the transaction around each invocation.
func NewTaskletStep(name string, tasklet scope.Provider[port.Tasklet], jobRepository repository.JobRepository, txManager tx.TransactionManager, opts ...step.Option) *TaskletStep {
	return &TaskletStep{
		name:          name,
		tasklet:       tasklet,
		jobRepository: jobRepository,
		txManager:     txManager,
		options:       step.NewOptions(opts...),
	}
}

func (s *TaskletStep) StepName() string { return s.name }

func (s *TaskletStep) AllowStartIfComplete() bool { return s.options.AllowStartIfComplete }

// Execute implements port.Step.
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error {
	ctx = port.WithStepExecution(ctx, stepExecution)
	ctx, end := s.options.Tracer.StartStepSpan(ctx, stepExecution)
	defer end()

	if err := step.Start(ctx, s.jobRepository, stepExecution, s.options); err != nil {
		return step.Finish(ctx, s.jobRepository, stepExecution, s.options, step.Failed, err)
	}

	tasklet, err := s.tasklet(ctx, jobExecution, stepExecution)
	if err != nil {
		return step.Finish(ctx, s.jobRepository, stepExecution, s.options, step.Failed, err)
	}

	outcome, cause := s.run(ctx, jobExecution, stepExecution, tasklet)

	if closer, ok := tasklet.(port.Closer); ok {
		if err := closer.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warnf("Step '%s': failed to close tasklet: %v", s.name, err)
			if cause == nil {
				outcome, cause = step.Failed, exception.NewStepExecutionError(s.name, err)
			}
		}
	}

	return step.Finish(ctx, s.jobRepository, stepExecution, s.options, outcome, cause)
}

func (s *TaskletStep) run(ctx context.Context, je *model.JobExecution, se *model.StepExecution, tasklet port.Tasklet) (step.Outcome, error) {
	for {
		if step.StopRequested(ctx, je) {
			logger.Infof("Step '%s': stop requested, ending after %d invocation(s).", s.name, se.CommitCount)
			return step.Stopped, nil
		}

		status, err := s.invokeWithRetry(ctx, se, tasklet)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return step.Stopped, nil
			}
			return step.Failed, err
		}
		if status == port.Finished {
			return step.Completed, nil
		}
	}
}

func (s *TaskletStep) invokeWithRetry(ctx context.Context, se *model.StepExecution, tasklet port.Tasklet) (port.RepeatStatus, error) {
	for attempt := 1; ; attempt++ {
		status, err := s.invoke(context.WithoutCancel(ctx), se, tasklet)
		if err == nil {
			return status, nil
		}
		if !s.options.RetryPolicy.ShouldRetry(attempt, err) {
			return status, exception.NewStepExecutionError(s.name, err)
		}

		logger.Warnf("Step '%s': invocation failed (attempt %d), retrying: %v", s.name, attempt, err)
		for _, l := range s.options.RetryListeners {
			l.OnRetry(ctx, se, attempt, err)
		}
		s.options.MetricRecorder.RecordRetry(ctx, s.name, exception.ExtractErrorMessage(err))
		if werr := retry.Wait(ctx, s.options.RetryPolicy.Backoff(attempt)); werr != nil {
			return status, werr
		}
	}
}

// invoke runs one tasklet call inside a transaction. On failure the step
// execution is restored to what it was before the call.
func (s *TaskletStep) invoke(ctx context.Context, se *model.StepExecution, tasklet port.Tasklet) (status port.RepeatStatus, err error) {
	t, err := s.txManager.Begin(ctx, s.options.BeginOptions()...)
	if err != nil {
		return port.Finished, fmt.Errorf("failed to begin transaction: %w", err)
	}
	txCtx := tx.WithTx(ctx, t)
	restore := step.Snapshot(se)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tasklet panicked: %v", r)
		}
		if err != nil {
			if rbErr := s.txManager.Rollback(t); rbErr != nil {
				logger.Errorf("Step '%s': rollback failed: %v", s.name, rbErr)
			}
			restore()
			se.RollbackCount++
			s.options.Tracer.RecordError(ctx, s.name, err)
		}
	}()

	status, err = tasklet.Execute(txCtx, se)
	if err != nil {
		return status, err
	}

	se.CommitCount++
	if err = step.Checkpoint(txCtx, s.jobRepository, se); err != nil {
		return status, err
	}
	if err = s.txManager.Commit(t); err != nil {
		return status, fmt.Errorf("failed to commit transaction: %w", err)
	}
	logger.Debugf("Step '%s': invocation committed (%s).", s.name, status)
	return status, nil
}
