package item

import (
	"context"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
)

// ListItemReader reads a fixed slice. Its position is checkpointed under
// "<name>.read.count".
type ListItemReader[T any] struct {
	name  string
	items []T
	next  int
}

var _ port.ItemReader[any] = (*ListItemReader[any])(nil)

func NewListItemReader[T any](name string, items []T) *ListItemReader[T] {
	return &ListItemReader[T]{name: name, items: append([]T(nil), items...)}
}

func (r *ListItemReader[T]) key() string { return r.name + ".read.count" }

func (r *ListItemReader[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	r.next, _ = ec.GetInt(r.key())
	r.next = min(max(r.next, 0), len(r.items))
	return nil
}

func (r *ListItemReader[T]) Read(ctx context.Context) (T, error) {
	if r.next >= len(r.items) {
		var zero T
		return zero, port.ErrNoMoreItems
	}
	item := r.items[r.next]
	r.next++
	return item, nil
}

func (r *ListItemReader[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	ec := model.NewExecutionContext()
	ec.Put(r.key(), r.next)
	return ec, nil
}

func (r *ListItemReader[T]) Close(ctx context.Context) error { return nil }
