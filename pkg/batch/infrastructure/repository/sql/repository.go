// Package sql implements repository.JobRepository on a relational database through gorm.
//
// Every statement runs on the gorm session of the tx.Tx carried by the context
// when it was begun by a GormTransactionManager, so the step execution update
// and checkpoint of a chunk commit together with its writes.
package sql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	gormadapter "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

const module = "GormJobRepository"

// GormJobRepository stores batch metadata in the batch_* tables.
type GormJobRepository struct {
	db *gorm.DB
}

var _ repository.JobRepository = (*GormJobRepository)(nil)

func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

func (r *GormJobRepository) session(ctx context.Context) *gorm.DB {
	return gormadapter.Session(ctx, r.db)
}

// Close implements repository.JobRepository. The connection belongs to whoever opened db.
func (r *GormJobRepository) Close() error {
	return nil
}

// take runs query and maps a missing row to notFound.
func take(query *gorm.DB, dest any, notFound error, what string) error {
	err := query.Take(dest).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case err != nil:
		return exception.NewBatchError(module, "failed to load "+what, err, false, false)
	}
	return nil
}

// versionedUpdate applies columns to the row id at version and reports which
// of not found, a version conflict or success happened.
func (r *GormJobRepository) versionedUpdate(ctx context.Context, entity any, id string, version int, columns map[string]any, notFound error, what string) error {
	res := r.session(ctx).Model(entity).Where("id = ? AND version = ?", id, version).Updates(columns)
	if res.Error != nil {
		return exception.NewBatchError(module, fmt.Sprintf("failed to update %s (ID: %s)", what, id), res.Error, false, false)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := r.session(ctx).Model(entity).Where("id = ?", id).Count(&count).Error; err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("failed to check %s (ID: %s)", what, id), err, false, false)
	}
	if count == 0 {
		return fmt.Errorf("%s with ID %s not found for update: %w", what, id, notFound)
	}
	return exception.NewOptimisticLockingFailureException(module,
		fmt.Sprintf("%s %s was updated by another execution (expected version %d)", what, id, version), nil)
}
