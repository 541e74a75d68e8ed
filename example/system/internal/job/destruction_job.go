package job

import (
	"context"
	"fmt"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/factory"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

const (
	SystemDestructionJobName = "systemDestructionJob"

	SystemDestructionTasklet = "systemDestructionTasklet"
	InfiltrationTasklet      = "infiltrationTasklet"

	// PreviousSystemStateKey is the job ExecutionContext entry left by systemDestructionStep.
	PreviousSystemStateKey = "previousSystemState"
	// TargetSystemStatusKey is the step ExecutionContext entry infiltrationTasklet reports.
	TargetSystemStatusKey = "targetSystemStatus"
)

// DestroySystem reads its orders straight from the JobParameters of the step and
// leaves the resulting state in the job ExecutionContext.
func DestroySystem(ctx context.Context, se *model.StepExecution) (port.RepeatStatus, error) {
	params := se.JobExecution.Parameters
	target, ok := params.GetString("system.target")
	if !ok {
		return port.Finished, exception.NewBatchErrorf(SystemDestructionJobName, "job parameter 'system.target' is missing")
	}
	level, ok := params.GetLong("system.destruction.level")
	if !ok {
		return port.Finished, exception.NewBatchErrorf(SystemDestructionJobName, "job parameter 'system.destruction.level' is missing or not a long")
	}
	logger.Infof("Target system: %s", target)
	logger.Infof("Destruction level: %d", level)
	se.JobExecution.ExecutionContext.Put(PreviousSystemStateKey, fmt.Sprintf("%s destroyed at level %d", target, level))
	return port.Finished, nil
}

// NewSystemDestructionTaskletDefinition reports the state left in the job
// ExecutionContext. It is built once per JobExecution.
func NewSystemDestructionTaskletDefinition() scope.Definition {
	return scope.Definition{
		Name:         SystemDestructionTasklet,
		Kind:         scope.Job,
		Placeholders: []scope.Placeholder{scope.JobContextValue(PreviousSystemStateKey, scope.String).Optional("UNKNOWN")},
		Build: func(_ context.Context, v scope.Values) (any, error) {
			state := v.String(PreviousSystemStateKey)
			return finished(func(context.Context, *model.StepExecution) error {
				logger.Infof("Previous system state: %s", state)
				return nil
			}), nil
		},
	}
}

// NewInfiltrationTaskletDefinition reports the target status kept in the step
// ExecutionContext, which a restarted step inherits from its failed attempt.
func NewInfiltrationTaskletDefinition() scope.Definition {
	return scope.Definition{
		Name:         InfiltrationTasklet,
		Kind:         scope.Step,
		Placeholders: []scope.Placeholder{scope.StepContextValue(TargetSystemStatusKey, scope.String).Optional("UNKNOWN")},
		Build: func(_ context.Context, v scope.Values) (any, error) {
			status := v.String(TargetSystemStatusKey)
			return finished(func(context.Context, *model.StepExecution) error {
				logger.Infof("Target system status: %s", status)
				return nil
			}), nil
		},
	}
}

// NewSystemDestructionJob destroys the target, then reports the job and step scoped state.
func NewSystemDestructionJob(jf *runner.JobFactory, sf *factory.StepFactory, reg *scope.Registry) port.Job {
	return jf.NewJob(SystemDestructionJobName,
		sf.Tasklet("systemDestructionStep", scope.Instance[port.Tasklet](port.TaskletFunc(DestroySystem))),
		sf.Tasklet("systemStateReportStep", scope.JobScoped[port.Tasklet](reg, SystemDestructionTasklet)),
		sf.Tasklet("infiltrationStep", scope.StepScoped[port.Tasklet](reg, InfiltrationTasklet)),
	)
}
