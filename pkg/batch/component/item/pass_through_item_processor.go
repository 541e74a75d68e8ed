package item

import (
	"context"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
)

// PassThroughItemProcessor returns every item unchanged.
type PassThroughItemProcessor[T any] struct{}

var _ port.ItemProcessor[any, any] = PassThroughItemProcessor[any]{}

func NewPassThroughItemProcessor[T any]() PassThroughItemProcessor[T] { return PassThroughItemProcessor[T]{} }

func (PassThroughItemProcessor[T]) Process(ctx context.Context, item T) (T, bool, error) {
	return item, true, nil
}

// FilterItemProcessor keeps the items for which keep returns true and drops the rest.
func FilterItemProcessor[T any](keep func(item T) bool) port.ItemProcessor[T, T] {
	return port.ItemProcessorFunc[T, T](func(ctx context.Context, item T) (T, bool, error) {
		return item, keep(item), nil
	})
}

// CompositeItemProcessor chains processors of the same type. An item dropped by
// one processor is not passed to the rest.
func CompositeItemProcessor[T any](processors ...port.ItemProcessor[T, T]) port.ItemProcessor[T, T] {
	return port.ItemProcessorFunc[T, T](func(ctx context.Context, item T) (T, bool, error) {
		for _, p := range processors {
			out, keep, err := p.Process(ctx, item)
			if err != nil || !keep {
				return out, keep, err
			}
			item = out
		}
		return item, true, nil
	})
}
