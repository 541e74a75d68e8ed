package usecase

import (
	"context"
	"errors"
	"fmt"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	exception "github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	logger "github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// DefaultJobOperator implements JobOperator on top of a SimpleJobLauncher.
type DefaultJobOperator struct {
	jobRepository repository.JobRepository
	jobLauncher   *SimpleJobLauncher
}

var _ JobOperator = (*DefaultJobOperator)(nil)

func NewDefaultJobOperator(jobRepository repository.JobRepository, jobLauncher *SimpleJobLauncher) *DefaultJobOperator {
	return &DefaultJobOperator{
		jobRepository: jobRepository,
		jobLauncher:   jobLauncher,
	}
}

func (o *DefaultJobOperator) Restart(ctx context.Context, executionID string) (*model.JobExecution, error) {
	logger.Infof("JobOperator: Restart called for JobExecution (ID: %s).", executionID)

	prev, err := o.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return nil, exception.NewBatchError("job_operator", fmt.Sprintf("restart: failed to load JobExecution (ID: %s)", executionID), err, false, false)
	}
	if !prev.Status.IsRestartable() {
		return nil, exception.NewBatchErrorf("job_operator", "restart: JobExecution (ID: %s) is not in a restartable state (current status: %s)", executionID, prev.Status)
	}

	next, err := o.jobLauncher.Launch(ctx, prev.JobName, prev.Parameters)
	if next == nil {
		return nil, exception.NewBatchError("job_operator", fmt.Sprintf("failed to restart JobExecution (ID: %s)", executionID), err, false, false)
	}
	logger.Infof("Restarted Job '%s' (previous Execution ID: %s, new Execution ID: %s).", prev.JobName, executionID, next.ID)
	return next, err
}

// Stop signals an execution running in this process. An execution that is still
// marked running in the repository but is unknown to the launcher is marked STOPPING,
// so it can be abandoned afterwards.
func (o *DefaultJobOperator) Stop(ctx context.Context, executionID string) error {
	logger.Infof("JobOperator: Stop called for JobExecution (ID: %s).", executionID)

	err := o.jobLauncher.Stop(executionID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrJobExecutionNotRunning) {
		return err
	}

	je, err := o.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return exception.NewBatchError("job_operator", fmt.Sprintf("stop: failed to load JobExecution (ID: %s)", executionID), err, false, false)
	}
	if je.Status.IsFinished() {
		return exception.NewBatchErrorf("job_operator", "stop: JobExecution (ID: %s) is already in a finished state (%s)", executionID, je.Status)
	}
	if err := je.TransitionTo(model.BatchStatusStopping); err != nil {
		return exception.NewBatchError("job_operator", fmt.Sprintf("stop: JobExecution (ID: %s)", executionID), err, false, false)
	}
	if err := o.jobRepository.UpdateJobExecution(ctx, je); err != nil {
		return exception.NewBatchError("job_operator", fmt.Sprintf("stop: failed to update JobExecution (ID: %s)", executionID), err, false, false)
	}
	logger.Warnf("JobExecution (ID: %s) is not running in this process; marked it STOPPING.", executionID)
	return nil
}

func (o *DefaultJobOperator) Abandon(ctx context.Context, executionID string) error {
	logger.Infof("JobOperator: Abandon called for JobExecution (ID: %s).", executionID)

	if o.jobLauncher.IsRunning(executionID) {
		return exception.NewBatchErrorf("job_operator", "abandon: JobExecution (ID: %s) is running in this process", executionID)
	}
	je, err := o.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return exception.NewBatchError("job_operator", fmt.Sprintf("abandon: failed to load JobExecution (ID: %s)", executionID), err, false, false)
	}
	switch je.Status {
	case model.BatchStatusCompleted, model.BatchStatusAbandoned:
		return exception.NewBatchErrorf("job_operator", "abandon: JobExecution (ID: %s) is %s", executionID, je.Status)
	case model.BatchStatusStarting, model.BatchStatusStarted:
		return exception.NewBatchErrorf("job_operator", "abandon: JobExecution (ID: %s) is still running (%s); stop it first", executionID, je.Status)
	}

	je.MarkAsAbandoned()
	if err := o.jobRepository.UpdateJobExecution(ctx, je); err != nil {
		return exception.NewBatchError("job_operator", fmt.Sprintf("abandon: failed to update JobExecution (ID: %s)", executionID), err, false, false)
	}
	logger.Infof("JobExecution (ID: %s) marked ABANDONED.", executionID)
	return nil
}
