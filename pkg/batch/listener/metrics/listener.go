// Package metrics times chunks and jobs through a MetricRecorder. Item and
// status counters are recorded by the engine itself.
package metrics

import (
	"context"
	"sync"
	"time"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	metrics "github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
)

// Names passed to MetricRecorder.RecordDuration.
const (
	ChunkDuration = "chunk"
	JobDuration   = "job"
)

// ChunkTimingListener records the duration of every chunk, tagged with its
// step and whether it committed.
type ChunkTimingListener struct {
	recorder metrics.MetricRecorder

	mu      sync.Mutex
	started map[string]time.Time
	now     func() time.Time
}

var (
	_ port.StepExecutionListener = (*ChunkTimingListener)(nil)
	_ port.ChunkListener         = (*ChunkTimingListener)(nil)
)

func NewChunkTimingListener(recorder metrics.MetricRecorder) *ChunkTimingListener {
	return &ChunkTimingListener{recorder: recorder, started: make(map[string]time.Time), now: time.Now}
}

// WithClock replaces time.Now, for tests.
func (l *ChunkTimingListener) WithClock(now func() time.Time) *ChunkTimingListener {
	l.now = now
	return l
}

func (l *ChunkTimingListener) BeforeStep(ctx context.Context, se *model.StepExecution) {}

// AfterStep forgets a chunk left open by a failure outside the chunk loop.
func (l *ChunkTimingListener) AfterStep(ctx context.Context, se *model.StepExecution) {
	l.mu.Lock()
	delete(l.started, se.ID)
	l.mu.Unlock()
}

func (l *ChunkTimingListener) BeforeChunk(ctx context.Context, se *model.StepExecution) {
	l.mu.Lock()
	l.started[se.ID] = l.now()
	l.mu.Unlock()
}

func (l *ChunkTimingListener) AfterChunk(ctx context.Context, se *model.StepExecution) {
	l.finish(ctx, se, "committed")
}

func (l *ChunkTimingListener) AfterChunkError(ctx context.Context, se *model.StepExecution, err error) {
	l.finish(ctx, se, "rolled_back")
}

func (l *ChunkTimingListener) finish(ctx context.Context, se *model.StepExecution, outcome string) {
	l.mu.Lock()
	start, ok := l.started[se.ID]
	delete(l.started, se.ID)
	l.mu.Unlock()
	if !ok {
		return
	}
	l.recorder.RecordDuration(ctx, ChunkDuration, l.now().Sub(start), map[string]string{
		"step_name": se.StepName,
		"outcome":   outcome,
	})
}

// JobTimingListener records the wall time of every job execution, tagged with
// the job name and exit status.
type JobTimingListener struct {
	recorder metrics.MetricRecorder
}

var _ port.JobExecutionListener = (*JobTimingListener)(nil)

func NewJobTimingListener(recorder metrics.MetricRecorder) *JobTimingListener {
	return &JobTimingListener{recorder: recorder}
}

func (l *JobTimingListener) BeforeJob(ctx context.Context, je *model.JobExecution) {}

func (l *JobTimingListener) AfterJob(ctx context.Context, je *model.JobExecution) {
	if je.EndTime == nil {
		return
	}
	l.recorder.RecordDuration(ctx, JobDuration, je.EndTime.Sub(je.StartTime), map[string]string{
		"job_name":    je.JobName,
		"exit_status": string(je.ExitStatus),
	})
}
