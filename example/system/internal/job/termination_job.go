package job

import (
	"context"
	"strings"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/incrementer"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/factory"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"

	"github.com/kangwooc/spring-batch/example/system/internal/domain"
)

const (
	SystemTerminationSimulationJobName = "systemTerminationSimulationJob"
	ProcessTerminatorJobName           = "processTerminatorJob"
	EnumTerminatorJobName              = "enumTerminatorJob"
	PojoTerminatorJobName              = "pojoTerminatorJob"
	PojoJsonTerminatorJobName          = "pojoJsonTerminatorJob"

	TerminatorTasklet         = "terminatorTasklet"
	EnumTerminatorTasklet     = "enumTerminatorTasklet"
	PojoTerminatorTasklet     = "pojoTerminatorTasklet"
	PojoJsonTerminatorTasklet = "pojoJsonTerminatorTasklet"

	// TerminationTarget is how many processes defeatProcessStep terminates.
	TerminationTarget = 5

	// ProcessesKilledKey is the step ExecutionContext key of the defeatProcessStep counter.
	ProcessesKilledKey = "processes.killed"
	// TerminatedCountKey records how many processes terminatorTasklet ended.
	TerminatedCountKey = "terminator.terminated"
	// RewardKey records the reward of enumTerminatorTasklet.
	RewardKey = "quest.reward"
	// InfiltrationMinutesKey records the estimate of pojoTerminatorTasklet.
	InfiltrationMinutesKey = "infiltration.minutes"
)

func finished(fn func(ctx context.Context, se *model.StepExecution) error) port.Tasklet {
	return port.TaskletFunc(func(ctx context.Context, se *model.StepExecution) (port.RepeatStatus, error) {
		return port.Finished, fn(ctx, se)
	})
}

// DefeatProcessTasklet terminates one process per invocation until TerminationTarget is reached.
func DefeatProcessTasklet(ctx context.Context, se *model.StepExecution) (port.RepeatStatus, error) {
	terminated, _ := se.ExecutionContext.GetInt(ProcessesKilledKey)
	terminated++
	se.ExecutionContext.Put(ProcessesKilledKey, terminated)
	logger.Infof("Zombie process terminated (%d/%d).", terminated, TerminationTarget)
	if terminated < TerminationTarget {
		return port.Continuable, nil
	}
	return port.Finished, nil
}

// NewSystemTerminationSimulationJob is a four step quest whose third step repeats.
func NewSystemTerminationSimulationJob(jf *runner.JobFactory, sf *factory.StepFactory) port.Job {
	enterWorld := sf.Tasklet("enterWorldStep", scope.Instance(finished(func(context.Context, *model.StepExecution) error {
		logger.Infof("Connected to the System Termination simulation.")
		return nil
	})))
	meetNPC := sf.Tasklet("meetNPCStep", scope.Instance(finished(func(context.Context, *model.StepExecution) error {
		logger.Infof("Met the system administrator NPC.")
		logger.Infof("First mission: terminate %d zombie processes.", TerminationTarget)
		return nil
	})))
	defeatProcess := sf.Tasklet("defeatProcessStep", scope.Instance[port.Tasklet](port.TaskletFunc(DefeatProcessTasklet)))
	completeQuest := sf.Tasklet("completeQuestStep", scope.Instance(finished(func(context.Context, *model.StepExecution) error {
		logger.Infof("Mission complete: %d zombie processes terminated.", TerminationTarget)
		logger.Infof("Reward: kill -9 privilege, system control level 1.")
		return nil
	})))
	return jf.NewJob(SystemTerminationSimulationJobName, enterWorld, meetNPC, defeatProcess, completeQuest).
		WithIncrementer(incrementer.NewRunIDIncrementer(""))
}

// NewTerminatorTaskletDefinition binds the terminator's orders from the job parameters.
func NewTerminatorTaskletDefinition() scope.Definition {
	return scope.Definition{
		Name: TerminatorTasklet,
		Kind: scope.Step,
		Placeholders: []scope.Placeholder{
			scope.Param("terminatorId", scope.String),
			scope.Param("targetCount", scope.Int),
			scope.Param("executionDate", scope.Date),
			scope.Param("startTime", scope.DateTime),
		},
		Build: func(_ context.Context, v scope.Values) (any, error) {
			id, target := v.String("terminatorId"), v.Int("targetCount")
			executionDate, startTime := v.Date("executionDate"), v.DateTime("startTime")
			return finished(func(ctx context.Context, se *model.StepExecution) error {
				logger.Infof("System terminator ID: %s, targets: %d.", id, target)
				logger.Infof("SYSTEM TERMINATOR %s starting the operation.", id)
				logger.Infof("Scheduled for %s, operation started at %s.",
					executionDate.Format("2006-01-02"), startTime.Format("2006-01-02 15:04:05"))
				se.ExecutionContext.Put(TerminatedCountKey, 0)
				for i := 1; i <= target; i++ {
					logger.Infof("Process %d terminated.", i)
					se.ExecutionContext.Put(TerminatedCountKey, i)
				}
				logger.Infof("Mission complete: every target process terminated.")
				return nil
			}), nil
		},
	}
}

// NewEnumTerminatorTaskletDefinition rewards a quest by its difficulty.
func NewEnumTerminatorTaskletDefinition() scope.Definition {
	return scope.Definition{
		Name:         EnumTerminatorTasklet,
		Kind:         scope.Step,
		Placeholders: []scope.Placeholder{scope.Param("questDifficulty", scope.Enum).OneOf(domain.QuestDifficulties...)},
		Build: func(_ context.Context, v scope.Values) (any, error) {
			difficulty := domain.QuestDifficulty(v.Enum("questDifficulty"))
			return finished(func(ctx context.Context, se *model.StepExecution) error {
				reward, err := difficulty.Reward()
				if err != nil {
					return err
				}
				logger.Infof("System infiltration started, difficulty %s.", difficulty)
				logger.Infof("System taken over, %d megabytes of resources acquired.", reward)
				se.ExecutionContext.Put(RewardKey, reward)
				return nil
			}), nil
		},
	}
}

// NewPojoTerminatorTaskletDefinition binds SystemInfiltrationParameters from the job parameters.
func NewPojoTerminatorTaskletDefinition() scope.Definition {
	return scope.Definition{
		Name: PojoTerminatorTasklet,
		Kind: scope.Step,
		Placeholders: []scope.Placeholder{
			scope.Param("missionName", scope.String),
			scope.Param("securityLevel", scope.Int),
			scope.Param("operationCommander", scope.String),
		},
		Build: func(_ context.Context, v scope.Values) (any, error) {
			var params domain.SystemInfiltrationParameters
			if err := v.Bind(&params); err != nil {
				return nil, err
			}
			return finished(func(ctx context.Context, se *model.StepExecution) error {
				logger.Infof("Mission %s, security level %d, commander %s.",
					params.MissionName, params.SecurityLevel, params.OperationCommander)
				minutes := params.InfiltrationMinutes()
				logger.Infof("Estimated infiltration time: %d minutes.", minutes)
				se.ExecutionContext.Put(InfiltrationMinutesKey, minutes)
				return nil
			}), nil
		},
	}
}

// NewPojoJsonTerminatorTaskletDefinition splits infiltrationTargets into its comma separated targets.
func NewPojoJsonTerminatorTaskletDefinition() scope.Definition {
	return scope.Definition{
		Name:         PojoJsonTerminatorTasklet,
		Kind:         scope.Step,
		Placeholders: []scope.Placeholder{scope.Param("infiltrationTargets", scope.String)},
		Build: func(_ context.Context, v scope.Values) (any, error) {
			targets := strings.Split(v.String("infiltrationTargets"), ",")
			for i := range targets {
				targets[i] = strings.TrimSpace(targets[i])
			}
			if targets[0] == "" {
				return nil, exception.NewBatchErrorf(PojoJsonTerminatorTasklet, "infiltrationTargets names no target")
			}
			return finished(func(context.Context, *model.StepExecution) error {
				logger.Infof("Infiltration started at first target %s.", targets[0])
				logger.Infof("Regrouping at last target %s.", targets[len(targets)-1])
				return nil
			}), nil
		},
	}
}

func singleTaskletJob(jf *runner.JobFactory, sf *factory.StepFactory, reg *scope.Registry, jobName, stepName, tasklet string) port.Job {
	return jf.NewJob(jobName, sf.Tasklet(stepName, scope.StepScoped[port.Tasklet](reg, tasklet)))
}

func NewProcessTerminatorJob(jf *runner.JobFactory, sf *factory.StepFactory, reg *scope.Registry) port.Job {
	return singleTaskletJob(jf, sf, reg, ProcessTerminatorJobName, "terminationStep", TerminatorTasklet)
}

func NewEnumTerminatorJob(jf *runner.JobFactory, sf *factory.StepFactory, reg *scope.Registry) port.Job {
	return singleTaskletJob(jf, sf, reg, EnumTerminatorJobName, "enumTerminationStep", EnumTerminatorTasklet)
}

func NewPojoTerminatorJob(jf *runner.JobFactory, sf *factory.StepFactory, reg *scope.Registry) port.Job {
	return singleTaskletJob(jf, sf, reg, PojoTerminatorJobName, "pojoTerminationStep", PojoTerminatorTasklet)
}

func NewPojoJsonTerminatorJob(jf *runner.JobFactory, sf *factory.StepFactory, reg *scope.Registry) port.Job {
	return singleTaskletJob(jf, sf, reg, PojoJsonTerminatorJobName, "pojoJsonTerminationStep", PojoJsonTerminatorTasklet)
}
