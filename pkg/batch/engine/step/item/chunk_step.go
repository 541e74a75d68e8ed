package item

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// ChunkStep reads items one at a time, passes each through an optional processor
// and writes them in chunks of at most commitInterval items. Each chunk is one
// transaction: the writer call and the checkpoint of reader and writer state
// commit or roll back together.
type ChunkStep[I, O any] struct {
	name           string
	reader         scope.Provider[port.ItemReader[I]]
	processor      scope.Provider[port.ItemProcessor[I, O]]
	writer         scope.Provider[port.ItemWriter[O]]
	commitInterval int
	jobRepository  repository.JobRepository
	txManager      tx.TransactionManager
	options        step.Options
}

// NewChunkStep creates a ChunkStep.
//
// Parameters:
//
//	name: The step name, unique within its job.
//	reader, processor, writer: Resolve the components when the step starts. processor may be nil,
//	  in which case every item read is written as is and I must be the same type as O.
//	commitInterval: The number of items read per chunk. Values below 1 are treated as 1.
//	jobRepository: Persists the step execution and checkpoint with every chunk.
//	txManager: Begins the transaction around each chunk.
func NewChunkStep[I, O any](
	name string,
	reader scope.Provider[port.ItemReader[I]],
	processor scope.Provider[port.ItemProcessor[I, O]],
	writer scope.Provider[port.ItemWriter[O]],
	commitInterval int,
	jobRepository repository.JobRepository,
	txManager tx.TransactionManager,
	opts ...step.Option,
) *ChunkStep[I, O] {
	if commitInterval < 1 {
		commitInterval = 1
	}
	return &ChunkStep[I, O]{
		name:           name,
		reader:         reader,
		processor:      processor,
		writer:         writer,
		commitInterval: commitInterval,
		jobRepository:  jobRepository,
		txManager:      txManager,
		options:        step.NewOptions(opts...),
	}
}

func (s *ChunkStep[I, O]) StepName() string { return s.name }

func (s *ChunkStep[I, O]) AllowStartIfComplete() bool { return s.options.AllowStartIfComplete }

// CommitInterval returns the configured chunk size.
func (s *ChunkStep[I, O]) CommitInterval() int { return s.commitInterval }

// components is what the providers resolved for one step execution.
type components[I, O any] struct {
	reader    port.ItemReader[I]
	processor port.ItemProcessor[I, O]
	writer    port.ItemWriter[O]
}

// Execute implements port.Step.
func (s *ChunkStep[I, O]) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error {
	ctx = port.WithStepExecution(ctx, stepExecution)
	ctx, end := s.options.Tracer.StartStepSpan(ctx, stepExecution)
	defer end()

	if err := step.Start(ctx, s.jobRepository, stepExecution, s.options); err != nil {
		return step.Finish(ctx, s.jobRepository, stepExecution, s.options, step.Failed, err)
	}

	c, err := s.resolve(ctx, jobExecution, stepExecution)
	if err != nil {
		return step.Finish(ctx, s.jobRepository, stepExecution, s.options, step.Failed, err)
	}

	var outcome step.Outcome
	var cause error
	opened, err := s.open(ctx, stepExecution, c)
	if err != nil {
		outcome, cause = step.Failed, err
	} else {
		outcome, cause = s.loop(ctx, jobExecution, stepExecution, c)
	}

	if err := s.close(context.WithoutCancel(ctx), opened); err != nil {
		logger.Warnf("Step '%s': failed to close item streams: %v", s.name, err)
		if cause == nil {
			outcome, cause = step.Failed, exception.NewBatchError(s.name, "failed to close item streams", err, false, false)
		}
	}

	return step.Finish(ctx, s.jobRepository, stepExecution, s.options, outcome, cause)
}

func (s *ChunkStep[I, O]) resolve(ctx context.Context, je *model.JobExecution, se *model.StepExecution) (components[I, O], error) {
	var c components[I, O]
	var err error
	if c.reader, err = s.reader(ctx, je, se); err != nil {
		return c, err
	}
	if s.processor != nil {
		if c.processor, err = s.processor(ctx, je, se); err != nil {
			return c, err
		}
	} else {
		c.processor = passThrough[I, O]{}
	}
	if c.writer, err = s.writer(ctx, je, se); err != nil {
		return c, err
	}
	return c, nil
}

// open opens the reader, then the writer, with the context committed by the
// previous attempt. It returns the streams that were opened so they can be closed.
func (s *ChunkStep[I, O]) open(ctx context.Context, se *model.StepExecution, c components[I, O]) ([]port.ItemStream, error) {
	var opened []port.ItemStream
	for _, stream := range []port.ItemStream{c.reader, c.writer} {
		if err := stream.Open(ctx, se.ExecutionContext.Copy()); err != nil {
			return opened, exception.NewBatchError(s.name, "failed to open item stream", err, false, false)
		}
		opened = append(opened, stream)
	}
	return opened, nil
}

func (s *ChunkStep[I, O]) close(ctx context.Context, streams []port.ItemStream) error {
	var result *multierror.Error
	for i := len(streams) - 1; i >= 0; i-- {
		if err := streams[i].Close(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (s *ChunkStep[I, O]) loop(ctx context.Context, je *model.JobExecution, se *model.StepExecution, c components[I, O]) (step.Outcome, error) {
	for {
		if step.StopRequested(ctx, je) {
			logger.Infof("Step '%s': stop requested, ending after %d chunk(s).", s.name, se.CommitCount)
			return step.Stopped, nil
		}

		// A chunk already started runs to its commit or rollback even if the launch is cancelled.
		exhausted, err := s.chunk(context.WithoutCancel(ctx), se, c)
		if err != nil {
			return step.Failed, err
		}
		if exhausted {
			return step.Completed, nil
		}
	}
}

// contribution holds the counts of one chunk until it commits.
type contribution struct {
	read, filtered, written int
	readSkips, processSkips int
}

func (c contribution) skips() int { return c.readSkips + c.processSkips }

// chunk processes one chunk in its own transaction and reports whether the reader is exhausted.
func (s *ChunkStep[I, O]) chunk(ctx context.Context, se *model.StepExecution, c components[I, O]) (exhausted bool, err error) {
	t, err := s.txManager.Begin(ctx, s.options.BeginOptions()...)
	if err != nil {
		return false, exception.NewBatchError(s.name, "failed to begin chunk transaction", err, false, false)
	}
	txCtx := tx.WithTx(ctx, t)
	restore := step.Snapshot(se)

	defer func() {
		if r := recover(); r != nil {
			err = exception.NewBatchError(s.name, fmt.Sprintf("chunk panicked: %v", r), nil, false, false)
		}
		if err != nil {
			s.rollback(ctx, se, t, restore, err)
		}
	}()

	for _, l := range s.options.ChunkListeners {
		l.BeforeChunk(txCtx, se)
	}

	var contrib contribution
	buffer := make([]O, 0, s.commitInterval)
	// Skipped reads count toward the interval so a reader failing on every call still commits.
	for contrib.read+contrib.readSkips < s.commitInterval {
		item, rerr := c.reader.Read(txCtx)
		if errors.Is(rerr, port.ErrNoMoreItems) {
			exhausted = true
			break
		}
		if rerr != nil {
			if !s.options.SkipPolicy.ShouldSkip(nil, rerr, se.SkipCount()+contrib.skips()) {
				return false, exception.NewReadError(s.name, rerr)
			}
			contrib.readSkips++
			s.notifySkipRead(txCtx, rerr)
			continue
		}
		contrib.read++

		out, keep, perr := c.processor.Process(txCtx, item)
		if perr != nil {
			if !s.options.SkipPolicy.ShouldSkip(item, perr, se.SkipCount()+contrib.skips()) {
				return false, exception.NewProcessError(s.name, perr)
			}
			contrib.processSkips++
			s.notifySkipProcess(txCtx, item, perr)
			continue
		}
		if !keep {
			contrib.filtered++
			continue
		}
		buffer = append(buffer, out)
	}

	if contrib.read == 0 && contrib.skips() == 0 {
		// Nothing was consumed: the reader was already exhausted.
		if rbErr := s.txManager.Rollback(t); rbErr != nil {
			logger.Debugf("Step '%s': rollback of empty chunk: %v", s.name, rbErr)
		}
		return true, nil
	}

	if len(buffer) > 0 {
		if werr := c.writer.Write(txCtx, buffer); werr != nil {
			return false, exception.NewWriteError(s.name, werr)
		}
		contrib.written = len(buffer)
	}

	if err := s.commit(txCtx, se, t, c, contrib); err != nil {
		return false, err
	}

	for _, l := range s.options.ChunkListeners {
		l.AfterChunk(ctx, se)
	}
	return exhausted, nil
}

// commit applies contrib to se, merges the reader and writer state into the
// step execution context, checkpoints it and commits the transaction.
func (s *ChunkStep[I, O]) commit(ctx context.Context, se *model.StepExecution, t tx.Tx, c components[I, O], contrib contribution) error {
	for _, stream := range []port.ItemStream{c.reader, c.writer} {
		ec, err := stream.GetExecutionContext(ctx)
		if err != nil {
			return exception.NewBatchError(s.name, "failed to get item stream execution context", err, false, false)
		}
		se.ExecutionContext.Merge(ec)
	}

	se.ReadCount += contrib.read
	se.FilterCount += contrib.filtered
	se.WriteCount += contrib.written
	se.ReadSkipCount += contrib.readSkips
	se.ProcessSkipCount += contrib.processSkips
	se.CommitCount++

	if err := step.Checkpoint(ctx, s.jobRepository, se); err != nil {
		return exception.NewBatchError(s.name, "failed to checkpoint chunk", err, false, false)
	}
	if err := s.txManager.Commit(t); err != nil {
		return exception.NewBatchError(s.name, "failed to commit chunk", err, false, false)
	}

	rec := s.options.MetricRecorder
	rec.RecordItemRead(ctx, s.name, contrib.read)
	rec.RecordItemFilter(ctx, s.name, contrib.filtered)
	rec.RecordItemWrite(ctx, s.name, contrib.written)
	rec.RecordChunkCommit(ctx, s.name, contrib.written)
	logger.Debugf("Step '%s': chunk %d committed (read=%d, filtered=%d, written=%d, skipped=%d).",
		s.name, se.CommitCount, contrib.read, contrib.filtered, contrib.written, contrib.skips())
	return nil
}

func (s *ChunkStep[I, O]) rollback(ctx context.Context, se *model.StepExecution, t tx.Tx, restore func(), cause error) {
	if err := s.txManager.Rollback(t); err != nil && !errors.Is(err, tx.ErrTxDone) {
		logger.Errorf("Step '%s': chunk rollback failed: %v", s.name, err)
	}
	restore()
	se.RollbackCount++
	s.options.MetricRecorder.RecordChunkRollback(ctx, s.name)
	s.options.Tracer.RecordError(ctx, s.name, cause)
	logger.Warnf("Step '%s': chunk rolled back: %v", s.name, cause)
	for _, l := range s.options.ChunkListeners {
		l.AfterChunkError(ctx, se, cause)
	}
}

func (s *ChunkStep[I, O]) notifySkipRead(ctx context.Context, err error) {
	logger.Warnf("Step '%s': skipping unreadable item: %v", s.name, err)
	s.options.MetricRecorder.RecordItemSkip(ctx, s.name, "read")
	s.options.Tracer.RecordEvent(ctx, "item.skip", map[string]any{"phase": "read", "error": err.Error()})
	for _, l := range s.options.SkipListeners {
		l.OnSkipInRead(ctx, err)
	}
}

func (s *ChunkStep[I, O]) notifySkipProcess(ctx context.Context, item any, err error) {
	logger.Warnf("Step '%s': skipping item that failed processing: %v", s.name, err)
	s.options.MetricRecorder.RecordItemSkip(ctx, s.name, "process")
	s.options.Tracer.RecordEvent(ctx, "item.skip", map[string]any{"phase": "process", "error": err.Error()})
	for _, l := range s.options.SkipListeners {
		l.OnSkipInProcess(ctx, item, err)
	}
}

// passThrough stands in for a missing processor.
type passThrough[I, O any] struct{}

func (passThrough[I, O]) Process(ctx context.Context, item I) (O, bool, error) {
	out, ok := any(item).(O)
	if !ok {
		var zero O
		return zero, false, fmt.Errorf("item of type %T cannot be written without a processor", item)
	}
	return out, true, nil
}
