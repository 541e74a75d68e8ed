package item

import (
	"context"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// DefaultWriteCountKey is used by NewExecutionContextItemWriter when key is empty.
const DefaultWriteCountKey = "writer.write_count"

// ExecutionContextItemWriter only counts the items it receives and checkpoints
// the running total under its key.
type ExecutionContextItemWriter[I any] struct {
	key   string
	count int
}

var _ port.ItemWriter[any] = (*ExecutionContextItemWriter[any])(nil)

func NewExecutionContextItemWriter[I any](key string) *ExecutionContextItemWriter[I] {
	if key == "" {
		key = DefaultWriteCountKey
	}
	return &ExecutionContextItemWriter[I]{key: key}
}

func (w *ExecutionContextItemWriter[I]) Open(ctx context.Context, ec model.ExecutionContext) error {
	w.count, _ = ec.GetInt(w.key)
	return nil
}

func (w *ExecutionContextItemWriter[I]) Write(ctx context.Context, items []I) error {
	w.count += len(items)
	logger.Debugf("ExecutionContextItemWriter: %d items written, '%s' is now %d.", len(items), w.key, w.count)
	return nil
}

// Count returns the running total.
func (w *ExecutionContextItemWriter[I]) Count() int { return w.count }

func (w *ExecutionContextItemWriter[I]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	ec := model.NewExecutionContext()
	ec.Put(w.key, w.count)
	return ec, nil
}

func (w *ExecutionContextItemWriter[I]) Close(ctx context.Context) error { return nil }
