package item_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kangwooc/spring-batch/pkg/batch/component/item"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
)

func TestListItemReader_ResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	r := item.NewListItemReader("numbers", []int{1, 2, 3})
	require.NoError(t, r.Open(ctx, model.NewExecutionContext()))
	v, err := r.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	ec, _ := r.GetExecutionContext(ctx)
	n, _ := ec.GetInt("numbers.read.count")
	assert.Equal(t, 1, n)

	restarted := item.NewListItemReader("numbers", []int{1, 2, 3})
	require.NoError(t, restarted.Open(ctx, ec))
	var rest []int
	for {
		v, err := restarted.Read(ctx)
		if errors.Is(err, port.ErrNoMoreItems) {
			break
		}
		rest = append(rest, v)
	}
	assert.Equal(t, []int{2, 3}, rest)
}

func TestProcessors(t *testing.T) {
	ctx := context.Background()
	upper := port.ItemProcessorFunc[string, string](func(_ context.Context, s string) (string, bool, error) {
		return strings.ToUpper(s), true, nil
	})
	p := item.CompositeItemProcessor[string](item.FilterItemProcessor(func(s string) bool { return s != "" }), upper)

	out, keep, err := p.Process(ctx, "kill")
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, "KILL", out)

	_, keep, err = p.Process(ctx, "")
	require.NoError(t, err)
	assert.False(t, keep)

	same, keep, _ := item.NewPassThroughItemProcessor[int]().Process(ctx, 7)
	assert.True(t, keep)
	assert.Equal(t, 7, same)
}

func TestExecutionContextItemWriter_AccumulatesAcrossRestart(t *testing.T) {
	ctx := context.Background()
	w := item.NewExecutionContextItemWriter[string]("")
	require.NoError(t, w.Open(ctx, model.NewExecutionContext()))
	require.NoError(t, w.Write(ctx, []string{"a", "b"}))
	ec, _ := w.GetExecutionContext(ctx)

	again := item.NewExecutionContextItemWriter[string]("")
	require.NoError(t, again.Open(ctx, ec))
	require.NoError(t, again.Write(ctx, []string{"c"}))
	assert.Equal(t, 3, again.Count())

	_, err := item.NewNoOpItemReader[string]().Read(ctx)
	assert.ErrorIs(t, err, port.ErrNoMoreItems)
	assert.NoError(t, item.NewLogItemWriter[string]("note: ", nil).Write(ctx, []string{"x"}))
}
