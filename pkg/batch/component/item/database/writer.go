package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	gormadapter "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// ItemWriter inserts each chunk in batches of at most batchSize rows. Rows are
// written on the session of the chunk transaction, so they commit with it.
type ItemWriter[T any] struct {
	port.NoOpItemStream
	name       string
	db         *gorm.DB
	batchSize  int
	onConflict *clause.OnConflict
}

var _ port.ItemWriter[any] = (*ItemWriter[any])(nil)

// WriterOption configures an ItemWriter.
type WriterOption func(*writerConfig)

type writerConfig struct {
	batchSize  int
	onConflict *clause.OnConflict
}

// WithBatchSize bounds the rows of one INSERT statement.
func WithBatchSize(n int) WriterOption { return func(c *writerConfig) { c.batchSize = n } }

// WithUpsert turns conflicts on conflictColumns into updates of updateColumns.
// Without updateColumns the conflicting rows are left untouched.
func WithUpsert(conflictColumns []string, updateColumns ...string) WriterOption {
	return func(c *writerConfig) {
		oc := &clause.OnConflict{}
		for _, col := range conflictColumns {
			oc.Columns = append(oc.Columns, clause.Column{Name: col})
		}
		if len(updateColumns) == 0 {
			oc.DoNothing = true
		} else {
			oc.DoUpdates = clause.AssignmentColumns(updateColumns)
		}
		c.onConflict = oc
	}
}

func NewItemWriter[T any](name string, db *gorm.DB, opts ...WriterOption) *ItemWriter[T] {
	cfg := writerConfig{batchSize: 100}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.batchSize <= 0 {
		cfg.batchSize = 100
	}
	return &ItemWriter[T]{name: name, db: db, batchSize: cfg.batchSize, onConflict: cfg.onConflict}
}

func (w *ItemWriter[T]) Write(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	session := gormadapter.Session(ctx, w.db)
	if w.onConflict != nil {
		session = session.Clauses(*w.onConflict)
	}
	if err := session.CreateInBatches(items, w.batchSize).Error; err != nil {
		return exception.NewBatchError(w.name, fmt.Sprintf("ItemWriter '%s': failed to write %d rows", w.name, len(items)), err, false, false)
	}
	logger.Debugf("ItemWriter '%s': wrote %d rows.", w.name, len(items))
	return nil
}
