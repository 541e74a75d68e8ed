// Package database reads and writes items through gorm, inside the chunk
// transaction when the step runs on the gorm TransactionManager.
package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	gormadapter "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// ReadCountKey is the ExecutionContext key suffix holding the number of items returned so far.
const ReadCountKey = "read.count"

// PagingItemReader reads the rows of T page by page. query narrows the
// statement and must impose a total order, since a restarted reader resumes at
// the checkpointed offset.
//
// Pages are fetched on the session of the chunk transaction, so a single
// connection pool does not block between the read and the write of a chunk.
type PagingItemReader[T any] struct {
	name     string
	db       *gorm.DB
	pageSize int
	query    func(*gorm.DB) *gorm.DB

	page    []T
	pos     int
	read    int
	fetched int
	done    bool
}

var _ port.ItemReader[any] = (*PagingItemReader[any])(nil)

func NewPagingItemReader[T any](name string, db *gorm.DB, pageSize int, query func(*gorm.DB) *gorm.DB) *PagingItemReader[T] {
	if pageSize <= 0 {
		pageSize = 100
	}
	if query == nil {
		query = func(db *gorm.DB) *gorm.DB { return db }
	}
	return &PagingItemReader[T]{name: name, db: db, pageSize: pageSize, query: query}
}

func (r *PagingItemReader[T]) key() string { return r.name + "." + ReadCountKey }

func (r *PagingItemReader[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	r.page, r.pos, r.read, r.done = nil, 0, 0, false
	if n, ok := ec.GetInt(r.key()); ok {
		r.read = n
		logger.Infof("PagingItemReader '%s': resuming after %d items.", r.name, n)
	}
	r.fetched = r.read
	return nil
}

func (r *PagingItemReader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if r.pos >= len(r.page) {
		if r.done {
			return zero, port.ErrNoMoreItems
		}
		if err := r.fetch(ctx); err != nil {
			return zero, err
		}
		if len(r.page) == 0 {
			return zero, port.ErrNoMoreItems
		}
	}
	item := r.page[r.pos]
	r.pos++
	r.read++
	return item, nil
}

func (r *PagingItemReader[T]) fetch(ctx context.Context) error {
	var page []T
	err := gormadapter.Session(ctx, r.db).
		Model(new(T)).
		Scopes(r.query).
		Offset(r.fetched).
		Limit(r.pageSize).
		Find(&page).Error
	if err != nil {
		return exception.NewBatchError(r.name, fmt.Sprintf("PagingItemReader '%s': failed to fetch the page at offset %d", r.name, r.fetched), err, false, false)
	}
	logger.Debugf("PagingItemReader '%s': fetched %d rows at offset %d.", r.name, len(page), r.fetched)
	r.page, r.pos = page, 0
	r.fetched += len(page)
	r.done = len(page) < r.pageSize
	return nil
}

func (r *PagingItemReader[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	ec := model.NewExecutionContext()
	ec.Put(r.key(), r.read)
	return ec, nil
}

func (r *PagingItemReader[T]) Close(ctx context.Context) error {
	r.page = nil
	return nil
}
