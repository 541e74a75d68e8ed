package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; exists {
		return fmt.Errorf("JobExecution with ID %s already exists", jobExecution.ID)
	}
	if _, ok := r.jobInstances[jobExecution.JobInstanceID]; !ok {
		return fmt.Errorf("JobExecution %s refers to unknown JobInstance %s: %w", jobExecution.ID, jobExecution.JobInstanceID, repository.ErrJobInstanceNotFound)
	}
	r.jobExecutions[jobExecution.ID] = cloneJobExecution(jobExecution)
	return nil
}

// UpdateJobExecution replaces the stored execution when their versions match
// and increments the version of both.
func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.jobExecutions[jobExecution.ID]
	if !ok {
		return fmt.Errorf("JobExecution with ID %s not found for update: %w", jobExecution.ID, repository.ErrJobExecutionNotFound)
	}
	if stored.Version != jobExecution.Version {
		return exception.NewOptimisticLockingFailureException("InMemoryJobRepository",
			fmt.Sprintf("JobExecution %s has version %d, update attempted with version %d", jobExecution.ID, stored.Version, jobExecution.Version), nil)
	}
	jobExecution.Version++
	r.jobExecutions[jobExecution.ID] = cloneJobExecution(jobExecution)
	return nil
}

// FindJobExecutionByID returns a copy of the execution with copies of its step
// executions attached, ordered by start time.
func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	je, ok := r.jobExecutions[executionID]
	if !ok {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.withSteps(je), nil
}

func (r *InMemoryJobRepository) FindLatestJobExecution(ctx context.Context, jobInstanceID string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.executionsOf(jobInstanceID)
	if len(list) == 0 {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.withSteps(list[len(list)-1]), nil
}

func (r *InMemoryJobRepository) FindJobExecutionsByJobInstance(ctx context.Context, jobInstanceID string) ([]*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.executionsOf(jobInstanceID)
	result := make([]*model.JobExecution, 0, len(list))
	for _, je := range list {
		result = append(result, r.withSteps(je))
	}
	return result, nil
}

// executionsOf returns the stored executions of an instance, oldest first. Callers hold mu.
func (r *InMemoryJobRepository) executionsOf(jobInstanceID string) []*model.JobExecution {
	var list []*model.JobExecution
	for _, je := range r.jobExecutions {
		if je.JobInstanceID == jobInstanceID {
			list = append(list, je)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreateTime.Equal(list[j].CreateTime) {
			return list[i].RestartCount < list[j].RestartCount
		}
		return list[i].CreateTime.Before(list[j].CreateTime)
	})
	return list
}

// withSteps clones je and attaches clones of its step executions. Callers hold mu.
func (r *InMemoryJobRepository) withSteps(je *model.JobExecution) *model.JobExecution {
	c := cloneJobExecution(je)
	for _, se := range r.stepExecutions {
		if se.JobExecutionID == c.ID {
			sc := cloneStepExecution(se)
			sc.JobExecution = c
			c.StepExecutions = append(c.StepExecutions, sc)
		}
	}
	sort.Slice(c.StepExecutions, func(i, j int) bool {
		return c.StepExecutions[i].StartTime.Before(c.StepExecutions[j].StartTime)
	})
	return c
}
