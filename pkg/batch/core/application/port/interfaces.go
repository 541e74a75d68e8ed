// Package port defines the contracts between the batch engine and the components it drives:
// jobs, steps, item readers, processors and writers, tasklets and listeners.
package port

import (
	"context"
	"errors"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
)

// ErrNoMoreItems is returned by ItemReader.Read when the input is exhausted.
var ErrNoMoreItems = errors.New("no more items to read")

// Job is a named, ordered sequence of steps.
type Job interface {
	// JobName returns the name the job is launched under.
	JobName() string
	// Run executes the job for the given execution, updating its status and
	// persisting every transition. The returned error is the cause of a FAILED run.
	//
	// Parameters:
	//
	//	ctx: Context of the launch. Cancelling it requests a stop at the next chunk boundary.
	//	jobExecution: The execution to run. It must already be saved in the repository.
	Run(ctx context.Context, jobExecution *model.JobExecution) error
}

// Step is one phase of a Job, executed in tasklet or chunk mode.
type Step interface {
	// StepName returns the step name, unique within its job.
	StepName() string
	// Execute runs the step for stepExecution, which belongs to jobExecution.
	// It sets the final status of stepExecution; the returned error is the failure cause.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	// AllowStartIfComplete reports whether the step is re-run on restart even when
	// a previous attempt completed.
	AllowStartIfComplete() bool
}

// ItemStream is the restartable lifecycle shared by readers and writers.
type ItemStream interface {
	// Open prepares the stream. ec holds the state committed by a previous
	// attempt of the same step and is empty on a first run.
	Open(ctx context.Context, ec model.ExecutionContext) error
	// Close releases resources. It is called once, whether the step succeeded or not.
	Close(ctx context.Context) error
	// GetExecutionContext returns the state to commit with the current chunk.
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// ItemReader produces items one at a time.
type ItemReader[O any] interface {
	ItemStream
	// Read returns the next item, or ErrNoMoreItems once exhausted.
	Read(ctx context.Context) (O, error)
}

// ItemProcessor transforms an item. Returning keep=false drops the item so it never reaches the writer.
type ItemProcessor[I, O any] interface {
	Process(ctx context.Context, item I) (out O, keep bool, err error)
}

// ItemProcessorFunc adapts a function to ItemProcessor.
type ItemProcessorFunc[I, O any] func(ctx context.Context, item I) (O, bool, error)

func (f ItemProcessorFunc[I, O]) Process(ctx context.Context, item I) (O, bool, error) {
	return f(ctx, item)
}

// ItemWriter receives whole chunks.
type ItemWriter[I any] interface {
	ItemStream
	// Write is called once per flushed chunk with every item of that chunk.
	Write(ctx context.Context, items []I) error
}

// NoOpItemStream can be embedded by readers and writers without restart state.
type NoOpItemStream struct{}

func (NoOpItemStream) Open(ctx context.Context, ec model.ExecutionContext) error { return nil }
func (NoOpItemStream) Close(ctx context.Context) error                        { return nil }
func (NoOpItemStream) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return model.NewExecutionContext(), nil
}

// RepeatStatus tells the tasklet step whether to invoke the tasklet again.
type RepeatStatus int

const (
	// Finished ends the step.
	Finished RepeatStatus = iota
	// Continuable asks for another invocation in a new transaction.
	Continuable
)

func (s RepeatStatus) String() string {
	if s == Continuable {
		return "CONTINUABLE"
	}
	return "FINISHED"
}

// Tasklet is a repeatable single action. State that must survive between
// invocations or restarts belongs in stepExecution.ExecutionContext.
type Tasklet interface {
	Execute(ctx context.Context, stepExecution *model.StepExecution) (RepeatStatus, error)
}

// TaskletFunc adapts a function to Tasklet.
type TaskletFunc func(ctx context.Context, stepExecution *model.StepExecution) (RepeatStatus, error)

func (f TaskletFunc) Execute(ctx context.Context, stepExecution *model.StepExecution) (RepeatStatus, error) {
	return f(ctx, stepExecution)
}

// Closer is implemented by tasklets holding resources released at step end.
type Closer interface {
	Close(ctx context.Context) error
}

// JobExecutionListener observes job boundaries.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

// StepExecutionListener observes step boundaries.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// ChunkListener observes chunk transactions.
type ChunkListener interface {
	BeforeChunk(ctx context.Context, stepExecution *model.StepExecution)
	// AfterChunk is called after a successful commit.
	AfterChunk(ctx context.Context, stepExecution *model.StepExecution)
	// AfterChunkError is called after the chunk was rolled back.
	AfterChunkError(ctx context.Context, stepExecution *model.StepExecution, err error)
}

// SkipListener is told about every item discarded by a skip policy.
type SkipListener interface {
	OnSkipInRead(ctx context.Context, err error)
	OnSkipInProcess(ctx context.Context, item any, err error)
}

// RetryListener is told before each retried tasklet invocation.
type RetryListener interface {
	OnRetry(ctx context.Context, stepExecution *model.StepExecution, attempt int, err error)
}

type contextKey string

const stepExecutionKey contextKey = "stepExecution"

// WithStepExecution returns a context carrying se.
func WithStepExecution(ctx context.Context, se *model.StepExecution) context.Context {
	return context.WithValue(ctx, stepExecutionKey, se)
}

// StepExecutionFromContext returns the step execution installed by WithStepExecution.
func StepExecutionFromContext(ctx context.Context) (*model.StepExecution, bool) {
	se, ok := ctx.Value(stepExecutionKey).(*model.StepExecution)
	return se, ok
}

// JobParametersIncrementer derives the parameters of the next instance of a job,
// so a job can be launched repeatedly with otherwise equal parameters.
type JobParametersIncrementer interface {
	GetNext(params model.JobParameters) model.JobParameters
}
