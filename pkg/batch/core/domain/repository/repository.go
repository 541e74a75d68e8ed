// Package repository defines how batch execution metadata is persisted.
package repository

import (
	"context"
	"errors"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

// CheckpointDataRepository stores the execution context committed with the last chunk of a step.
type CheckpointDataRepository interface {
	// SaveCheckpointData persists or replaces the checkpoint of data.StepExecutionID.
	SaveCheckpointData(ctx context.Context, data *model.CheckpointData) error

	// FindCheckpointData returns ErrCheckpointDataNotFound when the step never committed.
	FindCheckpointData(ctx context.Context, stepExecutionID string) (*model.CheckpointData, error)
}

// ErrCheckpointDataNotFound is returned when checkpoint data is not found.
var ErrCheckpointDataNotFound = errors.New("checkpoint data not found")

func init() {
	exception.RegisterErrorType("ErrCheckpointDataNotFound", ErrCheckpointDataNotFound)
}

// JobRepository persists job instances, job and step executions and checkpoints.
//
// Implementations return detached copies: mutating a returned value never
// changes stored state until it is passed back to a Save or Update method.
// Update methods enforce optimistic locking on Version and increment it.
// When the context carries a tx.Tx started by a compatible TransactionManager,
// writes join that transaction.
type JobRepository interface {
	JobInstance
	JobExecution
	StepExecution
	CheckpointDataRepository

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}
