package tasklet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/retry"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/tasklet"
	"github.com/kangwooc/spring-batch/pkg/batch/infrastructure/repository/inmemory"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	batchtest "github.com/kangwooc/spring-batch/pkg/batch/test"
)

func setup(t *testing.T) (*inmemory.InMemoryJobRepository, *model.JobExecution, *model.StepExecution) {
	t.Helper()
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	ji := model.NewJobInstance("system", model.NewJobParameters())
	require.NoError(t, repo.SaveJobInstance(ctx, ji))
	je := model.NewJobExecution(ji, ji.Parameters)
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	se := model.NewStepExecution("terminate", je)
	require.NoError(t, repo.SaveStepExecution(ctx, se))
	return repo, je, se
}

func newStep(repo *inmemory.InMemoryJobRepository, t port.Tasklet, opts ...step.Option) *tasklet.TaskletStep {
	return tasklet.NewTaskletStep("terminate", scope.Instance(t), repo, tx.NewResourcelessTransactionManager(), opts...)
}

// countdown kills one process per invocation and keeps its progress in the execution context.
func countdown(target int) port.TaskletFunc {
	return func(ctx context.Context, se *model.StepExecution) (port.RepeatStatus, error) {
		killed, _ := se.ExecutionContext.GetInt("killed")
		killed++
		se.ExecutionContext.Put("killed", killed)
		if killed < target {
			return port.Continuable, nil
		}
		return port.Finished, nil
	}
}

func TestTaskletStep_ContinuableRunsEachInvocationInItsOwnTransaction(t *testing.T) {
	repo, je, se := setup(t)

	require.NoError(t, newStep(repo, countdown(5)).Execute(context.Background(), je, se))

	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	assert.Equal(t, 5, se.CommitCount)
	stored, err := repo.FindStepExecutionByID(context.Background(), se.ID)
	require.NoError(t, err)
	killed, _ := stored.ExecutionContext.GetInt("killed")
	assert.Equal(t, 5, killed)

	cp, err := repo.FindCheckpointData(context.Background(), se.ID)
	require.NoError(t, err)
	killed, _ = cp.ExecutionContext.GetInt("killed")
	assert.Equal(t, 5, killed)
}

type retryCounter struct{ attempts []int }

func (r *retryCounter) OnRetry(ctx context.Context, se *model.StepExecution, attempt int, err error) {
	r.attempts = append(r.attempts, attempt)
}

func TestTaskletStep_RetryRunsInAFreshTransaction(t *testing.T) {
	repo, je, se := setup(t)
	calls := 0
	flaky := port.TaskletFunc(func(ctx context.Context, se *model.StepExecution) (port.RepeatStatus, error) {
		calls++
		se.ExecutionContext.Put("calls", calls)
		_, ok := tx.FromContext(ctx)
		require.True(t, ok, "tasklet runs inside a transaction")
		if calls < 3 {
			return port.Finished, errors.New("sensor timeout")
		}
		return port.Finished, nil
	})
	listener := &retryCounter{}

	err := newStep(repo, flaky, step.WithRetryPolicy(retry.NewSimpleRetryPolicy(3)), step.WithListener(listener)).
		Execute(context.Background(), je, se)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, listener.attempts)
	assert.Equal(t, 2, se.RollbackCount)
	assert.Equal(t, 1, se.CommitCount)
	n, _ := se.ExecutionContext.GetInt("calls")
	assert.Equal(t, 3, n)
}

func TestTaskletStep_FailureBecomesStepExecutionError(t *testing.T) {
	repo, je, se := setup(t)
	broken := port.TaskletFunc(func(ctx context.Context, se *model.StepExecution) (port.RepeatStatus, error) {
		se.ExecutionContext.Put("partial", true)
		return port.Finished, errors.New("permission denied")
	})

	err := newStep(repo, broken).Execute(context.Background(), je, se)

	assert.ErrorIs(t, err, exception.ErrStepExecution)
	assert.ErrorContains(t, err, "permission denied")
	assert.Equal(t, model.BatchStatusFailed, se.Status)
	assert.False(t, se.ExecutionContext.ContainsKey("partial"), "changes of a rolled back invocation are discarded")
	assert.NotEmpty(t, se.Failures)
}

func TestTaskletStep_StopSampledBetweenInvocations(t *testing.T) {
	repo, je, se := setup(t)
	calls := 0
	forever := port.TaskletFunc(func(ctx context.Context, se *model.StepExecution) (port.RepeatStatus, error) {
		calls++
		if calls == 2 {
			je.RequestStop()
		}
		return port.Continuable, nil
	})

	require.NoError(t, newStep(repo, forever).Execute(context.Background(), je, se))
	assert.Equal(t, 2, calls)
	assert.Equal(t, model.BatchStatusStopped, se.Status)
	assert.Equal(t, 2, se.CommitCount)
}

type closingTasklet struct {
	closed bool
}

func (c *closingTasklet) Execute(ctx context.Context, se *model.StepExecution) (port.RepeatStatus, error) {
	return port.Finished, nil
}

func (c *closingTasklet) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

func TestTaskletStep_ClosesTasklet(t *testing.T) {
	repo, je, se := setup(t)
	ct := &closingTasklet{}

	require.NoError(t, newStep(repo, ct).Execute(context.Background(), je, se))
	assert.True(t, ct.closed)
}

func TestTaskletStep_CommitFailureRollsBack(t *testing.T) {
	repo, je, se := setup(t)
	txm := &batchtest.MockTransactionManager{}
	first := txm.ExpectTransaction("tx-1")
	txm.On("Commit", first).Return(errors.New("connection reset")).Once()
	txm.On("Rollback", first).Return(nil).Once()

	s := tasklet.NewTaskletStep("terminate", scope.Instance[port.Tasklet](countdown(1)), repo, txm,
		step.WithRetryPolicy(retry.NeverRetryPolicy{}))
	err := s.Execute(context.Background(), je, se)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	assert.Equal(t, model.BatchStatusFailed, se.Status)
	assert.Zero(t, se.CommitCount, "the failed invocation's counters are restored")
	assert.Equal(t, 1, se.RollbackCount)
	txm.AssertExpectations(t)
}
