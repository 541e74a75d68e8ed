package multi

import (
	"context"
	"fmt"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// ResourceItemCountKey is the ExecutionContext key suffix holding the number of
// items written to the current resource.
const ResourceItemCountKey = "resource.item.count"

// ResourceAwareItemWriter is a writer whose output resource can be switched between Open calls.
type ResourceAwareItemWriter[T any] interface {
	port.ItemWriter[T]
	SetResource(resource string)
}

// SuffixCreator names the resource with the given 1-based index.
type SuffixCreator func(index int) string

// DotIndexSuffix produces ".1", ".2", ...
func DotIndexSuffix(index int) string { return fmt.Sprintf(".%d", index) }

// ResourceWriter writes at most limit items per resource through one delegate.
// Resources are named base+suffix(index) with index starting at 1, and each one
// is opened lazily so no empty trailing resource is created.
type ResourceWriter[T any] struct {
	name     string
	base     string
	suffix   SuffixCreator
	limit    int
	delegate ResourceAwareItemWriter[T]

	index  int
	count  int
	opened bool
}

var _ port.ItemWriter[any] = (*ResourceWriter[any])(nil)

// NewResourceWriter panics on a non-positive limit. A nil suffix means DotIndexSuffix.
func NewResourceWriter[T any](name, base string, suffix SuffixCreator, limit int, delegate ResourceAwareItemWriter[T]) *ResourceWriter[T] {
	if limit <= 0 {
		panic(fmt.Sprintf("multi.NewResourceWriter '%s': item count limit per resource must be positive, got %d", name, limit))
	}
	if suffix == nil {
		suffix = DotIndexSuffix
	}
	return &ResourceWriter[T]{
		name:     name,
		base:     base,
		suffix:   suffix,
		limit:    limit,
		delegate: delegate,
	}
}

func (w *ResourceWriter[T]) key(suffix string) string { return w.name + "." + suffix }

// CurrentResource returns the name of the resource receiving the next item.
func (w *ResourceWriter[T]) CurrentResource() string { return w.base + w.suffix(w.index) }

func (w *ResourceWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	w.index, w.count, w.opened = 1, 0, false
	idx, restarted := ec.GetInt(w.key(ResourceIndexKey))
	if !restarted {
		return nil
	}
	if idx < 1 {
		return exception.NewBatchErrorf(w.name, "ResourceWriter '%s': invalid checkpointed resource index %d", w.name, idx)
	}
	w.index = idx
	w.count, _ = ec.GetInt(w.key(ResourceItemCountKey))
	switch {
	case w.count >= w.limit:
		w.index++
		w.count = 0
	case w.count > 0:
		// The delegate restores its own position from ec.
		if err := w.openDelegate(ctx, ec); err != nil {
			return err
		}
		logger.Infof("ResourceWriter '%s': resumed '%s' after %d items.", w.name, w.CurrentResource(), w.count)
	}
	return nil
}

func (w *ResourceWriter[T]) openDelegate(ctx context.Context, ec model.ExecutionContext) error {
	w.delegate.SetResource(w.CurrentResource())
	if err := w.delegate.Open(ctx, ec); err != nil {
		return err
	}
	w.opened = true
	return nil
}

func (w *ResourceWriter[T]) Write(ctx context.Context, items []T) error {
	for len(items) > 0 {
		if !w.opened {
			if err := w.openDelegate(ctx, model.NewExecutionContext()); err != nil {
				return err
			}
			logger.Debugf("ResourceWriter '%s': opened resource '%s'.", w.name, w.CurrentResource())
		}
		n := min(w.limit-w.count, len(items))
		if err := w.delegate.Write(ctx, items[:n]); err != nil {
			return err
		}
		w.count += n
		items = items[n:]

		if w.count >= w.limit {
			if err := w.delegate.Close(ctx); err != nil {
				return err
			}
			logger.Debugf("ResourceWriter '%s': resource '%s' is full (%d items).", w.name, w.CurrentResource(), w.count)
			w.opened = false
			w.index++
			w.count = 0
		}
	}
	return nil
}

func (w *ResourceWriter[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	ec := model.NewExecutionContext()
	if w.opened {
		delegateEC, err := w.delegate.GetExecutionContext(ctx)
		if err != nil {
			return nil, err
		}
		ec.Merge(delegateEC)
	}
	ec.Put(w.key(ResourceIndexKey), w.index)
	ec.Put(w.key(ResourceItemCountKey), w.count)
	return ec, nil
}

func (w *ResourceWriter[T]) Close(ctx context.Context) error {
	if !w.opened {
		return nil
	}
	w.opened = false
	return w.delegate.Close(ctx)
}
