package listener

import (
	"context"
	"sync"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// JobCompletionSignaler closes Done after the first job execution it observes
// finishes, so a caller can wait for an asynchronously launched job.
type JobCompletionSignaler struct {
	done chan struct{}
	once sync.Once
	last *model.JobExecution
}

var _ port.JobExecutionListener = (*JobCompletionSignaler)(nil)

func NewJobCompletionSignaler() *JobCompletionSignaler {
	return &JobCompletionSignaler{done: make(chan struct{})}
}

// Done is closed once a job has finished.
func (l *JobCompletionSignaler) Done() <-chan struct{} { return l.done }

// Execution returns the execution that closed Done, or nil before that.
func (l *JobCompletionSignaler) Execution() *model.JobExecution {
	select {
	case <-l.done:
		return l.last
	default:
		return nil
	}
}

func (l *JobCompletionSignaler) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {}

func (l *JobCompletionSignaler) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.once.Do(func() {
		l.last = jobExecution
		logger.Debugf("JobCompletionSignaler: Job '%s' (ID: %s) finished.", jobExecution.JobName, jobExecution.ID)
		close(l.done)
	})
}
