package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
)

// SaveJobInstance stores a new JobInstance. A second instance with the same
// job name and identifying parameters is rejected.
func (r *InMemoryJobRepository) SaveJobInstance(ctx context.Context, instance *model.JobInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobInstances[instance.ID]; exists {
		return fmt.Errorf("JobInstance with ID %s already exists", instance.ID)
	}
	for _, ji := range r.jobInstances {
		if ji.JobName == instance.JobName && ji.ParametersHash == instance.ParametersHash {
			return fmt.Errorf("JobInstance for job '%s' with the same identifying parameters already exists (ID: %s)", ji.JobName, ji.ID)
		}
	}
	r.jobInstances[instance.ID] = cloneJobInstance(instance)
	return nil
}

func (r *InMemoryJobRepository) FindJobInstanceByID(ctx context.Context, id string) (*model.JobInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ji, ok := r.jobInstances[id]
	if !ok {
		return nil, repository.ErrJobInstanceNotFound
	}
	return cloneJobInstance(ji), nil
}

func (r *InMemoryJobRepository) FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hash := params.Hash()
	for _, ji := range r.jobInstances {
		if ji.JobName == jobName && ji.ParametersHash == hash {
			return cloneJobInstance(ji), nil
		}
	}
	return nil, repository.ErrJobInstanceNotFound
}

func (r *InMemoryJobRepository) FindLatestJobInstance(ctx context.Context, jobName string) (*model.JobInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *model.JobInstance
	for _, ji := range r.jobInstances {
		if ji.JobName == jobName && (latest == nil || ji.CreateTime.After(latest.CreateTime)) {
			latest = ji
		}
	}
	if latest == nil {
		return nil, repository.ErrJobInstanceNotFound
	}
	return cloneJobInstance(latest), nil
}

func (r *InMemoryJobRepository) GetJobNames(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, ji := range r.jobInstances {
		if _, ok := seen[ji.JobName]; !ok {
			seen[ji.JobName] = struct{}{}
			names = append(names, ji.JobName)
		}
	}
	sort.Strings(names)
	return names, nil
}
