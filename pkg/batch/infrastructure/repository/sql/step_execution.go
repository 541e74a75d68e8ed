package sql

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

func (r *GormJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	if err := r.session(ctx).Create(fromDomainStepExecution(stepExecution)).Error; err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("failed to save StepExecution (ID: %s)", stepExecution.ID), err, false, false)
	}
	return nil
}

func (r *GormJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	e := fromDomainStepExecution(stepExecution)
	if err := r.versionedUpdate(ctx, &StepExecutionEntity{}, e.ID, e.Version, stepExecutionColumns(e), repository.ErrStepExecutionNotFound, "StepExecution"); err != nil {
		return err
	}
	stepExecution.Version++
	return nil
}

func (r *GormJobRepository) FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error) {
	var e StepExecutionEntity
	if err := take(r.session(ctx).Where("id = ?", executionID), &e, repository.ErrStepExecutionNotFound, "StepExecution"); err != nil {
		return nil, err
	}
	return toDomainStepExecution(&e), nil
}

// FindLastStepExecution returns the latest started execution of stepName in any
// JobExecution of the instance.
func (r *GormJobRepository) FindLastStepExecution(ctx context.Context, jobInstanceID, stepName string) (*model.StepExecution, error) {
	var e StepExecutionEntity
	query := r.session(ctx).
		Select("batch_step_execution.*").
		Joins("JOIN batch_job_execution ON batch_job_execution.id = batch_step_execution.job_execution_id").
		Where("batch_job_execution.job_instance_id = ? AND batch_step_execution.step_name = ?", jobInstanceID, stepName).
		Order("batch_step_execution.start_time DESC")
	if err := take(query, &e, repository.ErrStepExecutionNotFound, "StepExecution"); err != nil {
		return nil, err
	}
	return toDomainStepExecution(&e), nil
}

// SaveCheckpointData inserts or replaces the checkpoint of the step execution.
func (r *GormJobRepository) SaveCheckpointData(ctx context.Context, data *model.CheckpointData) error {
	e := &CheckpointDataEntity{
		StepExecutionID:  data.StepExecutionID,
		ExecutionContext: orEmpty(data.ExecutionContext),
		LastUpdated:      data.LastUpdated,
	}
	err := r.session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "step_execution_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"execution_context", "last_updated"}),
	}).Create(e).Error
	if err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("failed to save checkpoint of StepExecution %s", data.StepExecutionID), err, false, false)
	}
	return nil
}

func (r *GormJobRepository) FindCheckpointData(ctx context.Context, stepExecutionID string) (*model.CheckpointData, error) {
	var e CheckpointDataEntity
	if err := take(r.session(ctx).Where("step_execution_id = ?", stepExecutionID), &e, repository.ErrCheckpointDataNotFound, "checkpoint"); err != nil {
		return nil, err
	}
	return toDomainCheckpointData(&e), nil
}
