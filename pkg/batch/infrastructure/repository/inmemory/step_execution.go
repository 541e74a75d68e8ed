package inmemory

import (
	"context"
	"fmt"

	"github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

func (r *InMemoryJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stepExecutions[stepExecution.ID]; exists {
		return fmt.Errorf("StepExecution with ID %s already exists", stepExecution.ID)
	}
	if _, ok := r.jobExecutions[stepExecution.JobExecutionID]; !ok {
		return fmt.Errorf("StepExecution %s refers to unknown JobExecution %s: %w", stepExecution.ID, stepExecution.JobExecutionID, repository.ErrJobExecutionNotFound)
	}
	r.stepExecutions[stepExecution.ID] = cloneStepExecution(stepExecution)
	return nil
}

func (r *InMemoryJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.stepExecutions[stepExecution.ID]
	if !ok {
		return fmt.Errorf("StepExecution with ID %s not found for update: %w", stepExecution.ID, repository.ErrStepExecutionNotFound)
	}
	if stored.Version != stepExecution.Version {
		return exception.NewOptimisticLockingFailureException("InMemoryJobRepository",
			fmt.Sprintf("StepExecution %s has version %d, update attempted with version %d", stepExecution.ID, stored.Version, stepExecution.Version), nil)
	}
	stepExecution.Version++
	r.stepExecutions[stepExecution.ID] = cloneStepExecution(stepExecution)
	return nil
}

func (r *InMemoryJobRepository) FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	se, ok := r.stepExecutions[executionID]
	if !ok {
		return nil, repository.ErrStepExecutionNotFound
	}
	return cloneStepExecution(se), nil
}

// FindLastStepExecution returns the most recent execution of stepName across
// every JobExecution of the instance.
func (r *InMemoryJobRepository) FindLastStepExecution(ctx context.Context, jobInstanceID, stepName string) (*model.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last *model.StepExecution
	for _, se := range r.stepExecutions {
		if se.StepName != stepName {
			continue
		}
		je, ok := r.jobExecutions[se.JobExecutionID]
		if !ok || je.JobInstanceID != jobInstanceID {
			continue
		}
		if last == nil || se.StartTime.After(last.StartTime) {
			last = se
		}
	}
	if last == nil {
		return nil, repository.ErrStepExecutionNotFound
	}
	return cloneStepExecution(last), nil
}

func (r *InMemoryJobRepository) SaveCheckpointData(ctx context.Context, data *model.CheckpointData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stepExecutions[data.StepExecutionID]; !ok {
		return fmt.Errorf("checkpoint refers to unknown StepExecution %s: %w", data.StepExecutionID, repository.ErrStepExecutionNotFound)
	}
	r.checkpointData[data.StepExecutionID] = &model.CheckpointData{
		StepExecutionID:  data.StepExecutionID,
		ExecutionContext: data.ExecutionContext.Copy(),
		LastUpdated:      data.LastUpdated,
	}
	return nil
}

func (r *InMemoryJobRepository) FindCheckpointData(ctx context.Context, stepExecutionID string) (*model.CheckpointData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.checkpointData[stepExecutionID]
	if !ok {
		return nil, repository.ErrCheckpointDataNotFound
	}
	return &model.CheckpointData{
		StepExecutionID:  data.StepExecutionID,
		ExecutionContext: data.ExecutionContext.Copy(),
		LastUpdated:      data.LastUpdated,
	}, nil
}
