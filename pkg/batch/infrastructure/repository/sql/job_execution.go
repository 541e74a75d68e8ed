package sql

import (
	"context"
	"fmt"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

func (r *GormJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	if err := r.session(ctx).Create(fromDomainJobExecution(jobExecution)).Error; err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("failed to save JobExecution (ID: %s)", jobExecution.ID), err, false, false)
	}
	return nil
}

// UpdateJobExecution rewrites the mutable columns when the stored version
// matches and increments the version of jobExecution.
func (r *GormJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	e := fromDomainJobExecution(jobExecution)
	if err := r.versionedUpdate(ctx, &JobExecutionEntity{}, e.ID, e.Version, jobExecutionColumns(e), repository.ErrJobExecutionNotFound, "JobExecution"); err != nil {
		return err
	}
	jobExecution.Version++
	return nil
}

// FindJobExecutionByID loads the execution with its step executions ordered by start time.
func (r *GormJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error) {
	var e JobExecutionEntity
	if err := take(r.session(ctx).Where("id = ?", executionID), &e, repository.ErrJobExecutionNotFound, "JobExecution"); err != nil {
		return nil, err
	}
	je := toDomainJobExecution(&e)

	var steps []StepExecutionEntity
	err := r.session(ctx).Where("job_execution_id = ?", executionID).Order("start_time").Find(&steps).Error
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("failed to load StepExecutions of JobExecution %s", executionID), err, false, false)
	}
	for i := range steps {
		se := toDomainStepExecution(&steps[i])
		se.JobExecution = je
		je.AddStepExecution(se)
	}
	return je, nil
}

func (r *GormJobRepository) FindLatestJobExecution(ctx context.Context, jobInstanceID string) (*model.JobExecution, error) {
	var e JobExecutionEntity
	query := r.session(ctx).Where("job_instance_id = ?", jobInstanceID).Order("create_time DESC").Order("restart_count DESC")
	if err := take(query, &e, repository.ErrJobExecutionNotFound, "JobExecution"); err != nil {
		return nil, err
	}
	return toDomainJobExecution(&e), nil
}

func (r *GormJobRepository) FindJobExecutionsByJobInstance(ctx context.Context, jobInstanceID string) ([]*model.JobExecution, error) {
	var entities []JobExecutionEntity
	err := r.session(ctx).Where("job_instance_id = ?", jobInstanceID).Order("create_time").Order("restart_count").Find(&entities).Error
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("failed to list JobExecutions of JobInstance %s", jobInstanceID), err, false, false)
	}
	executions := make([]*model.JobExecution, 0, len(entities))
	for i := range entities {
		executions = append(executions, toDomainJobExecution(&entities[i]))
	}
	return executions, nil
}
