package expression_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/expression"
)

func newExecutions() (*model.JobExecution, *model.StepExecution) {
	params := model.NewJobParametersBuilder().
		AddString("outputDir", "/tmp/out").
		AddLong("limit", 10).
		ToJobParameters()
	je := model.NewJobExecution(model.NewJobInstance("job", params), params)
	je.ExecutionContext.Put("region", "kr")
	se := model.NewStepExecution("step", je)
	se.ExecutionContext.Put("file.index", 2)
	return je, se
}

func TestDefaultResolver_Resolve(t *testing.T) {
	je, se := newExecutions()
	r := expression.NewDefaultResolver()

	got, err := r.Resolve(context.Background(), "#{jobParameters['outputDir']}/death_note_#{jobParameters['limit']}", je, se)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out/death_note_10", got)

	got, err = r.Resolve(context.Background(), "#{jobExecutionContext['region']}-#{stepExecutionContext['file.index']}", je, se)
	require.NoError(t, err)
	assert.Equal(t, "kr-2", got)

	got, err = r.Resolve(context.Background(), "plain", je, se)
	require.NoError(t, err)
	assert.Equal(t, "plain", got)
}

func TestDefaultResolver_UnknownKey(t *testing.T) {
	je, se := newExecutions()
	_, err := expression.NewDefaultResolver().Resolve(context.Background(), "#{jobParameters['missing']}", je, se)
	assert.ErrorContains(t, err, "missing")

	_, err = expression.NewDefaultResolver().Resolve(context.Background(), "#{stepExecution.readCount}", je, se)
	assert.Error(t, err)
}

func TestHasExpression(t *testing.T) {
	assert.True(t, expression.HasExpression("a/#{jobParameters['x']}"))
	assert.False(t, expression.HasExpression("a/b"))
}
