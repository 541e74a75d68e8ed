package usecase

import (
	"context"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
)

// JobLauncher starts job executions.
type JobLauncher interface {
	// Launch creates or restarts the JobInstance identified by jobName and params and runs it
	// synchronously on the calling goroutine.
	//
	// Parameters:
	//
	//	ctx: Context of the run. Cancelling it requests a stop at the next chunk boundary.
	//	jobName: Name of a registered job.
	//	params: Job parameters. The identifying subset selects the JobInstance.
	//
	// Returns:
	//
	//	The JobExecution in its final state, and the failure cause if the run did not complete.
	Launch(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error)
}

// JobOperator controls executions that already exist in the repository.
type JobOperator interface {
	// Restart launches a new execution of the instance a FAILED, STOPPED or ABANDONED execution belongs to.
	Restart(ctx context.Context, executionID string) (*model.JobExecution, error)

	// Stop asks a running execution to stop at its next chunk or tasklet boundary.
	Stop(ctx context.Context, executionID string) error

	// Abandon marks a finished, non-completed execution as ABANDONED.
	Abandon(ctx context.Context, executionID string) error
}

// JobExplorer is a read-only view over the job repository.
type JobExplorer interface {
	GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error)

	GetJobExecutions(ctx context.Context, instanceID string) ([]*model.JobExecution, error)

	GetLastJobExecution(ctx context.Context, instanceID string) (*model.JobExecution, error)

	GetJobInstance(ctx context.Context, instanceID string) (*model.JobInstance, error)

	FindJobInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error)

	GetLastJobInstance(ctx context.Context, jobName string) (*model.JobInstance, error)

	GetJobNames(ctx context.Context) ([]string, error)

	GetParameters(ctx context.Context, executionID string) (model.JobParameters, error)
}
