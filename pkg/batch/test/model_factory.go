package test

import (
	"testing"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
)

// NewTestJobParameters builds identifying string parameters from pairs of name and value.
func NewTestJobParameters(pairs ...string) model.JobParameters {
	b := model.NewJobParametersBuilder()
	for i := 0; i+1 < len(pairs); i += 2 {
		b.AddString(pairs[i], pairs[i+1])
	}
	return b.ToJobParameters()
}

// NewTestJobExecution returns a started execution of a new instance of jobName.
func NewTestJobExecution(jobName string, params model.JobParameters) *model.JobExecution {
	je := model.NewJobExecution(model.NewJobInstance(jobName, params), params)
	je.MarkAsStarted()
	return je
}

// NewTestStepExecution appends a new step execution to je.
func NewTestStepExecution(je *model.JobExecution, stepName string) *model.StepExecution {
	se := model.NewStepExecution(stepName, je)
	je.StepExecutions = append(je.StepExecutions, se)
	return se
}

// NewTestExecutionContext copies data into a new ExecutionContext.
func NewTestExecutionContext(t *testing.T, data map[string]any) model.ExecutionContext {
	t.Helper()
	ec := model.NewExecutionContext()
	for k, v := range data {
		ec.Put(k, v)
	}
	return ec
}
