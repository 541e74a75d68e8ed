package usecase

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/fx"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	exception "github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	logger "github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// JobGroup is the fx value group jobs are contributed to.
const JobGroup = "batch.jobs"

// ErrNoSuchJob is returned when a job name is not registered.
var ErrNoSuchJob = errors.New("no such job")

func init() {
	exception.RegisterErrorType("ErrNoSuchJob", ErrNoSuchJob)
}

// JobRegistryParams collects every job contributed to JobGroup.
type JobRegistryParams struct {
	fx.In
	Jobs []port.Job `group:"batch.jobs"`
}

// JobRegistry maps job names to jobs.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]port.Job
}

// NewJobRegistry builds a registry from the jobs of the fx group.
// Two jobs with the same name are a configuration error.
func NewJobRegistry(p JobRegistryParams) (*JobRegistry, error) {
	r := &JobRegistry{jobs: make(map[string]port.Job, len(p.Jobs))}
	for _, job := range p.Jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds job under its name.
func (r *JobRegistry) Register(job port.Job) error {
	if job == nil {
		return exception.NewBatchErrorf("job_registry", "cannot register a nil job")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name := job.JobName()
	if _, exists := r.jobs[name]; exists {
		return exception.NewBatchErrorf("job_registry", "job '%s' is already registered", name)
	}
	r.jobs[name] = job
	logger.Debugf("Registered job '%s'.", name)
	return nil
}

// Get returns the job registered under name, or an error wrapping ErrNoSuchJob.
func (r *JobRegistry) Get(name string) (port.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("job '%s': %w", name, ErrNoSuchJob)
	}
	return job, nil
}

// Names returns the registered job names in sorted order.
func (r *JobRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
