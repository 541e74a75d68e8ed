package metrics

import (
	"context"
	"sync"
	"time"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	metrics "github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
	logger "github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// DefaultAsyncBufferSize is used when batch.metrics_async_buffer_size is not positive.
const DefaultAsyncBufferSize = 100

type metricEventType int

const (
	eventJobStart metricEventType = iota
	eventJobEnd
	eventStepStart
	eventStepEnd
	eventItemRead
	eventItemFilter
	eventItemWrite
	eventItemSkip
	eventRetry
	eventChunkCommit
	eventChunkRollback
	eventDuration
)

// metricEvent is one deferred call of the wrapped recorder.
type metricEvent struct {
	typ           metricEventType
	ctx           context.Context
	jobExecution  *model.JobExecution
	stepExecution *model.StepExecution
	name          string
	count         int
	reason        string
	duration      time.Duration
	tags          map[string]string
}

// AsyncMetricRecorder queues recorder calls and replays them on a worker
// goroutine, so a slow backend never blocks a chunk. Events are dropped with a
// warning when the queue is full.
type AsyncMetricRecorder struct {
	queue    chan metricEvent
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	delegate metrics.MetricRecorder
}

var _ metrics.MetricRecorder = (*AsyncMetricRecorder)(nil)

func NewAsyncMetricRecorder(bufferSize int, delegate metrics.MetricRecorder) *AsyncMetricRecorder {
	if bufferSize <= 0 {
		bufferSize = DefaultAsyncBufferSize
	}
	r := &AsyncMetricRecorder{
		queue:    make(chan metricEvent, bufferSize),
		stopCh:   make(chan struct{}),
		delegate: delegate,
	}
	r.wg.Add(1)
	go r.run()
	logger.Debugf("AsyncMetricRecorder: worker started (buffer size: %d).", bufferSize)
	return r
}

func (r *AsyncMetricRecorder) run() {
	defer r.wg.Done()
	for {
		select {
		case event := <-r.queue:
			r.process(event)
		case <-r.stopCh:
			remaining := len(r.queue)
			for i := 0; i < remaining; i++ {
				r.process(<-r.queue)
			}
			logger.Debugf("AsyncMetricRecorder: worker stopped after draining %d events.", remaining)
			return
		}
	}
}

func (r *AsyncMetricRecorder) process(e metricEvent) {
	switch e.typ {
	case eventJobStart:
		r.delegate.RecordJobStart(e.ctx, e.jobExecution)
	case eventJobEnd:
		r.delegate.RecordJobEnd(e.ctx, e.jobExecution)
	case eventStepStart:
		r.delegate.RecordStepStart(e.ctx, e.stepExecution)
	case eventStepEnd:
		r.delegate.RecordStepEnd(e.ctx, e.stepExecution)
	case eventItemRead:
		r.delegate.RecordItemRead(e.ctx, e.name, e.count)
	case eventItemFilter:
		r.delegate.RecordItemFilter(e.ctx, e.name, e.count)
	case eventItemWrite:
		r.delegate.RecordItemWrite(e.ctx, e.name, e.count)
	case eventItemSkip:
		r.delegate.RecordItemSkip(e.ctx, e.name, e.reason)
	case eventRetry:
		r.delegate.RecordRetry(e.ctx, e.name, e.reason)
	case eventChunkCommit:
		r.delegate.RecordChunkCommit(e.ctx, e.name, e.count)
	case eventChunkRollback:
		r.delegate.RecordChunkRollback(e.ctx, e.name)
	case eventDuration:
		r.delegate.RecordDuration(e.ctx, e.name, e.duration, e.tags)
	}
}

// Close stops the worker after it has replayed every queued event. It is safe to call twice.
func (r *AsyncMetricRecorder) Close() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *AsyncMetricRecorder) send(ctx context.Context, e metricEvent) {
	// The caller's cancellation must not reach the delegate, its values must.
	e.ctx = context.WithoutCancel(ctx)
	select {
	case r.queue <- e:
	default:
		logger.Warnf("AsyncMetricRecorder: event queue is full, dropping event %d for '%s'.", e.typ, e.name)
	}
}

func (r *AsyncMetricRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	r.send(ctx, metricEvent{typ: eventJobStart, jobExecution: execution, name: execution.JobName})
}

func (r *AsyncMetricRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	r.send(ctx, metricEvent{typ: eventJobEnd, jobExecution: execution, name: execution.JobName})
}

func (r *AsyncMetricRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	r.send(ctx, metricEvent{typ: eventStepStart, stepExecution: execution, name: execution.StepName})
}

func (r *AsyncMetricRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	r.send(ctx, metricEvent{typ: eventStepEnd, stepExecution: execution, name: execution.StepName})
}

func (r *AsyncMetricRecorder) RecordItemRead(ctx context.Context, stepName string, count int) {
	r.send(ctx, metricEvent{typ: eventItemRead, name: stepName, count: count})
}

func (r *AsyncMetricRecorder) RecordItemFilter(ctx context.Context, stepName string, count int) {
	r.send(ctx, metricEvent{typ: eventItemFilter, name: stepName, count: count})
}

func (r *AsyncMetricRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.send(ctx, metricEvent{typ: eventItemWrite, name: stepName, count: count})
}

func (r *AsyncMetricRecorder) RecordItemSkip(ctx context.Context, stepName string, phase string) {
	r.send(ctx, metricEvent{typ: eventItemSkip, name: stepName, reason: phase})
}

func (r *AsyncMetricRecorder) RecordRetry(ctx context.Context, stepName string, reason string) {
	r.send(ctx, metricEvent{typ: eventRetry, name: stepName, reason: reason})
}

func (r *AsyncMetricRecorder) RecordChunkCommit(ctx context.Context, stepName string, count int) {
	r.send(ctx, metricEvent{typ: eventChunkCommit, name: stepName, count: count})
}

func (r *AsyncMetricRecorder) RecordChunkRollback(ctx context.Context, stepName string) {
	r.send(ctx, metricEvent{typ: eventChunkRollback, name: stepName})
}

func (r *AsyncMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.send(ctx, metricEvent{typ: eventDuration, name: name, duration: duration, tags: tags})
}
