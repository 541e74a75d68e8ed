package runner

import (
	"go.uber.org/fx"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	metrics "github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
)

// JobListenerGroup is the value group of listeners attached to every job built by JobFactory.
const JobListenerGroup = "job.listeners"

type JobFactoryParams struct {
	fx.In
	JobRepository  repository.JobRepository
	Registry       *scope.Registry
	MetricRecorder metrics.MetricRecorder
	Tracer         metrics.Tracer
	Listeners      []port.JobExecutionListener `group:"job.listeners"`
}

// JobFactory builds SimpleJobs wired to the container's repository, scope
// registry, metrics, tracer and job listeners.
type JobFactory struct {
	p JobFactoryParams
}

func NewJobFactory(p JobFactoryParams) *JobFactory {
	return &JobFactory{p: p}
}

// NewJob creates a SimpleJob running steps in order.
func (f *JobFactory) NewJob(name string, steps ...port.Step) *SimpleJob {
	return NewSimpleJob(name, f.p.JobRepository, steps...).
		WithListeners(f.p.Listeners...).
		WithScopeReleaser(f.p.Registry).
		WithMetricRecorder(f.p.MetricRecorder).
		WithTracer(f.p.Tracer)
}

// Module provides the JobFactory.
var Module = fx.Options(
	fx.Provide(NewJobFactory),
)
