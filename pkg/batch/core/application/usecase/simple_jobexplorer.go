package usecase

import (
	"context"
	"fmt"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	exception "github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

// SimpleJobExplorer reads job metadata straight from the JobRepository.
type SimpleJobExplorer struct {
	jobRepository repository.JobRepository
}

var _ JobExplorer = (*SimpleJobExplorer)(nil)

func NewSimpleJobExplorer(jobRepository repository.JobRepository) *SimpleJobExplorer {
	return &SimpleJobExplorer{jobRepository: jobRepository}
}

func (e *SimpleJobExplorer) GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error) {
	je, err := e.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("failed to get JobExecution (ID: %s)", executionID), err, false, false)
	}
	return je, nil
}

func (e *SimpleJobExplorer) GetJobExecutions(ctx context.Context, instanceID string) ([]*model.JobExecution, error) {
	executions, err := e.jobRepository.FindJobExecutionsByJobInstance(ctx, instanceID)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("failed to get JobExecutions of JobInstance (ID: %s)", instanceID), err, false, false)
	}
	return executions, nil
}

func (e *SimpleJobExplorer) GetLastJobExecution(ctx context.Context, instanceID string) (*model.JobExecution, error) {
	je, err := e.jobRepository.FindLatestJobExecution(ctx, instanceID)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("failed to get the latest JobExecution of JobInstance (ID: %s)", instanceID), err, false, false)
	}
	return je, nil
}

func (e *SimpleJobExplorer) GetJobInstance(ctx context.Context, instanceID string) (*model.JobInstance, error) {
	ji, err := e.jobRepository.FindJobInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("failed to get JobInstance (ID: %s)", instanceID), err, false, false)
	}
	return ji, nil
}

func (e *SimpleJobExplorer) FindJobInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	ji, err := e.jobRepository.FindJobInstanceByJobNameAndParameters(ctx, jobName, params)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("failed to find JobInstance of Job '%s'", jobName), err, false, false)
	}
	return ji, nil
}

func (e *SimpleJobExplorer) GetLastJobInstance(ctx context.Context, jobName string) (*model.JobInstance, error) {
	ji, err := e.jobRepository.FindLatestJobInstance(ctx, jobName)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("failed to get the latest JobInstance of Job '%s'", jobName), err, false, false)
	}
	return ji, nil
}

func (e *SimpleJobExplorer) GetJobNames(ctx context.Context) ([]string, error) {
	names, err := e.jobRepository.GetJobNames(ctx)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", "failed to get job names", err, false, false)
	}
	return names, nil
}

func (e *SimpleJobExplorer) GetParameters(ctx context.Context, executionID string) (model.JobParameters, error) {
	je, err := e.GetJobExecution(ctx, executionID)
	if err != nil {
		return model.JobParameters{}, err
	}
	return je.Parameters, nil
}
