// Package inmemory implements repository.JobRepository with maps guarded by a mutex.
// Suited to tests and to runs whose metadata need not survive the process.
//
// Writes take effect immediately; a transaction carried by the context is not
// joined, so a rolled back chunk leaves no trace only because the step resets
// the step execution it passed in.
package inmemory

import (
	"sync"

	"github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
)

type InMemoryJobRepository struct {
	mu             sync.RWMutex
	jobInstances   map[string]*model.JobInstance
	jobExecutions  map[string]*model.JobExecution
	stepExecutions map[string]*model.StepExecution
	checkpointData map[string]*model.CheckpointData
}

func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobInstances:   make(map[string]*model.JobInstance),
		jobExecutions:  make(map[string]*model.JobExecution),
		stepExecutions: make(map[string]*model.StepExecution),
		checkpointData: make(map[string]*model.CheckpointData),
	}
}

// Close implements repository.JobRepository. It holds no resources.
func (r *InMemoryJobRepository) Close() error {
	return nil
}

func cloneJobInstance(ji *model.JobInstance) *model.JobInstance {
	c := *ji
	return &c
}

// cloneJobExecution copies je without its step executions. The stop signal is
// shared with the original so a stop requested on any copy reaches the running job.
func cloneJobExecution(je *model.JobExecution) *model.JobExecution {
	c := *je
	c.ExecutionContext = je.ExecutionContext.Copy()
	c.Failures = append(model.FailureList{}, je.Failures...)
	c.StepExecutions = nil
	if je.EndTime != nil {
		end := *je.EndTime
		c.EndTime = &end
	}
	return &c
}

func cloneStepExecution(se *model.StepExecution) *model.StepExecution {
	c := *se
	c.ExecutionContext = se.ExecutionContext.Copy()
	c.Failures = append(model.FailureList{}, se.Failures...)
	c.JobExecution = nil
	if se.EndTime != nil {
		end := *se.EndTime
		c.EndTime = &end
	}
	return &c
}
