// Package factory builds tasklet and chunk steps with the engine-wide defaults
// applied: commit interval, retry and skip policies from configuration, the
// metric recorder, the tracer and every listener registered with the container.
package factory

import (
	"go.uber.org/fx"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	config "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	metrics "github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step"
	itemstep "github.com/kangwooc/spring-batch/pkg/batch/engine/step/item"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/retry"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/skip"
	taskletstep "github.com/kangwooc/spring-batch/pkg/batch/engine/step/tasklet"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// StepListenerGroup is the value group listeners join to be attached to every step.
// Listeners also implementing ChunkListener, SkipListener or RetryListener receive those callbacks too.
const StepListenerGroup = "step.listeners"

type StepFactoryParams struct {
	fx.In
	Config         *config.Config
	JobRepository  repository.JobRepository
	TxManager      tx.TransactionManager
	MetricRecorder metrics.MetricRecorder
	Tracer         metrics.Tracer
	Listeners      []port.StepExecutionListener `group:"step.listeners"`
}

// StepFactory holds the dependencies shared by every step of the application.
type StepFactory struct {
	cfg            *config.Config
	jobRepository  repository.JobRepository
	txManager      tx.TransactionManager
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
	listeners      []port.StepExecutionListener
}

func NewStepFactory(p StepFactoryParams) *StepFactory {
	return &StepFactory{
		cfg:            p.Config,
		jobRepository:  p.JobRepository,
		txManager:      p.TxManager,
		metricRecorder: p.MetricRecorder,
		tracer:         p.Tracer,
		listeners:      p.Listeners,
	}
}

func (f *StepFactory) JobRepository() repository.JobRepository { return f.jobRepository }

// defaults are applied before the caller's options, so callers can override any of them.
func (f *StepFactory) defaults() []step.Option {
	opts := []step.Option{
		step.WithMetricRecorder(f.metricRecorder),
		step.WithTracer(f.tracer),
		step.WithRetryPolicy(retry.NewPolicyFromConfig(f.cfg.Batch.Retry)),
		step.WithSkipPolicy(skip.NewPolicyFromConfig(f.cfg.Batch.Skip)),
	}
	for _, l := range f.listeners {
		opts = append(opts, step.WithListener(l))
	}
	return opts
}

// Tasklet builds a TaskletStep.
func (f *StepFactory) Tasklet(name string, tasklet scope.Provider[port.Tasklet], opts ...step.Option) *taskletstep.TaskletStep {
	s := taskletstep.NewTaskletStep(name, tasklet, f.jobRepository, f.txManager, append(f.defaults(), opts...)...)
	logger.Debugf("Tasklet Step '%s' built.", name)
	return s
}

// TaskletWithTransactionManager builds a TaskletStep whose invocations run on txManager
// instead of the container's, typically a tx.ResourcelessTransactionManager for tasklets
// whose side effects are not transactional.
func (f *StepFactory) TaskletWithTransactionManager(name string, txManager tx.TransactionManager, tasklet scope.Provider[port.Tasklet], opts ...step.Option) *taskletstep.TaskletStep {
	s := taskletstep.NewTaskletStep(name, tasklet, f.jobRepository, txManager, append(f.defaults(), opts...)...)
	logger.Debugf("Tasklet Step '%s' built on %T.", name, txManager)
	return s
}

// Chunk builds a ChunkStep whose commit interval is batch.chunk_size.
func Chunk[I, O any](
	f *StepFactory,
	name string,
	reader scope.Provider[port.ItemReader[I]],
	processor scope.Provider[port.ItemProcessor[I, O]],
	writer scope.Provider[port.ItemWriter[O]],
	opts ...step.Option,
) *itemstep.ChunkStep[I, O] {
	return ChunkSized(f, name, f.cfg.Batch.ChunkSize, reader, processor, writer, opts...)
}

// ChunkSized builds a ChunkStep with an explicit commit interval.
func ChunkSized[I, O any](
	f *StepFactory,
	name string,
	commitInterval int,
	reader scope.Provider[port.ItemReader[I]],
	processor scope.Provider[port.ItemProcessor[I, O]],
	writer scope.Provider[port.ItemWriter[O]],
	opts ...step.Option,
) *itemstep.ChunkStep[I, O] {
	s := itemstep.NewChunkStep(name, reader, processor, writer, commitInterval, f.jobRepository, f.txManager, append(f.defaults(), opts...)...)
	logger.Debugf("Chunk Step '%s' built (commit interval %d).", name, s.CommitInterval())
	return s
}
