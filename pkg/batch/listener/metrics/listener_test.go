package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	coremetrics "github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
	"github.com/kangwooc/spring-batch/pkg/batch/listener/metrics"
)

type duration struct {
	name string
	d    time.Duration
	tags map[string]string
}

type durationRecorder struct {
	coremetrics.NoOpMetricRecorder
	got []duration
}

func (r *durationRecorder) RecordDuration(ctx context.Context, name string, d time.Duration, tags map[string]string) {
	r.got = append(r.got, duration{name, d, tags})
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestChunkTimingListener_TagsOutcome(t *testing.T) {
	rec := &durationRecorder{}
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := metrics.NewChunkTimingListener(rec).WithClock(clock.now)
	params := model.NewJobParameters()
	se := model.NewStepExecution("load", model.NewJobExecution(model.NewJobInstance("importJob", params), params))
	ctx := context.Background()

	l.BeforeChunk(ctx, se)
	clock.t = clock.t.Add(2 * time.Second)
	l.AfterChunk(ctx, se)

	l.BeforeChunk(ctx, se)
	clock.t = clock.t.Add(time.Second)
	l.AfterChunkError(ctx, se, errors.New("rollback"))

	l.AfterChunk(ctx, se)

	require.Len(t, rec.got, 2, "a chunk without BeforeChunk is not timed")
	assert.Equal(t, metrics.ChunkDuration, rec.got[0].name)
	assert.Equal(t, 2*time.Second, rec.got[0].d)
	assert.Equal(t, "committed", rec.got[0].tags["outcome"])
	assert.Equal(t, "rolled_back", rec.got[1].tags["outcome"])
	assert.Equal(t, "load", rec.got[1].tags["step_name"])
}

func TestJobTimingListener_SkipsUnfinishedJobs(t *testing.T) {
	rec := &durationRecorder{}
	l := metrics.NewJobTimingListener(rec)
	params := model.NewJobParameters()
	je := model.NewJobExecution(model.NewJobInstance("importJob", params), params)
	je.MarkAsStarted()

	l.AfterJob(context.Background(), je)
	assert.Empty(t, rec.got)

	je.MarkAsCompleted()
	l.AfterJob(context.Background(), je)
	require.Len(t, rec.got, 1)
	assert.Equal(t, "COMPLETED", rec.got[0].tags["exit_status"])
}
