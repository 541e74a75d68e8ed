package job

import (
	"context"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/incrementer"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/factory"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

const (
	ZombieProcessCleanupJobName = "zombieProcessCleanupJob"

	// ZombiesKilledKey is the step ExecutionContext key counting cleaned up zombies.
	ZombiesKilledKey = "zombie.killed"
	// DefaultZombieCount is how many zombies a cleanup run kills.
	DefaultZombieCount = 10
)

// ZombieProcessCleanupTasklet kills one zombie process per invocation until Target are gone.
type ZombieProcessCleanupTasklet struct {
	Target int
}

var _ port.Tasklet = (*ZombieProcessCleanupTasklet)(nil)

func (t *ZombieProcessCleanupTasklet) Execute(ctx context.Context, se *model.StepExecution) (port.RepeatStatus, error) {
	killed, _ := se.ExecutionContext.GetInt(ZombiesKilledKey)
	killed++
	se.ExecutionContext.Put(ZombiesKilledKey, killed)
	logger.Infof("Terminating zombie process %d of %d.", killed, t.Target)
	if killed < t.Target {
		return port.Continuable, nil
	}
	logger.Infof("All %d zombie processes terminated.", t.Target)
	return port.Finished, nil
}

// NewZombieProcessCleanupJob runs the cleanup on a resourceless transaction manager,
// since killing processes cannot be rolled back.
func NewZombieProcessCleanupJob(jf *runner.JobFactory, sf *factory.StepFactory) port.Job {
	s := sf.TaskletWithTransactionManager("zombieCleanupStep", tx.NewResourcelessTransactionManager(),
		scope.Instance[port.Tasklet](&ZombieProcessCleanupTasklet{Target: DefaultZombieCount}))
	return jf.NewJob(ZombieProcessCleanupJobName, s).WithIncrementer(incrementer.NewRunIDIncrementer(""))
}
