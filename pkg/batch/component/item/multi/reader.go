// Package multi spreads item streams over several storage resources.
package multi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// ResourceIndexKey is the ExecutionContext key suffix holding the current resource index.
const ResourceIndexKey = "resource.index"

// ResourceAwareItemReader is a reader whose input resource can be switched between Open calls.
type ResourceAwareItemReader[T any] interface {
	port.ItemReader[T]
	SetResource(resource string)
}

// ResourceReader reads the resources in order through one delegate. The delegate
// is closed and reopened on the next resource whenever it returns ErrNoMoreItems.
type ResourceReader[T any] struct {
	name      string
	resources []string
	delegate  ResourceAwareItemReader[T]
	strict    bool

	index  int
	opened bool
}

var _ port.ItemReader[any] = (*ResourceReader[any])(nil)

func NewResourceReader[T any](name string, resources []string, delegate ResourceAwareItemReader[T]) *ResourceReader[T] {
	return &ResourceReader[T]{
		name:      name,
		resources: append([]string(nil), resources...),
		delegate:  delegate,
	}
}

// Strict makes Open fail when there are no resources.
func (r *ResourceReader[T]) Strict(strict bool) *ResourceReader[T] {
	r.strict = strict
	return r
}

func (r *ResourceReader[T]) key() string { return r.name + "." + ResourceIndexKey }

// Resources returns the resources in reading order.
func (r *ResourceReader[T]) Resources() []string { return append([]string(nil), r.resources...) }

func (r *ResourceReader[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	r.index, r.opened = 0, false
	if len(r.resources) == 0 {
		if r.strict {
			return exception.NewBatchErrorf(r.name, "ResourceReader '%s': no resources to read", r.name)
		}
		logger.Warnf("ResourceReader '%s': no resources to read.", r.name)
		return nil
	}
	if idx, ok := ec.GetInt(r.key()); ok {
		if idx < 0 || idx >= len(r.resources) {
			return exception.NewBatchErrorf(r.name, "ResourceReader '%s': checkpointed resource index %d is out of range (%d resources)", r.name, idx, len(r.resources))
		}
		r.index = idx
		logger.Infof("ResourceReader '%s': resuming at resource '%s'.", r.name, r.resources[idx])
	}
	return r.openDelegate(ctx, ec)
}

func (r *ResourceReader[T]) openDelegate(ctx context.Context, ec model.ExecutionContext) error {
	r.delegate.SetResource(r.resources[r.index])
	if err := r.delegate.Open(ctx, ec); err != nil {
		return err
	}
	r.opened = true
	logger.Debugf("ResourceReader '%s': opened resource %d/%d '%s'.", r.name, r.index+1, len(r.resources), r.resources[r.index])
	return nil
}

func (r *ResourceReader[T]) Read(ctx context.Context) (T, error) {
	for r.opened {
		item, err := r.delegate.Read(ctx)
		if !errors.Is(err, port.ErrNoMoreItems) {
			return item, err
		}
		if err := r.delegate.Close(ctx); err != nil {
			var zero T
			return zero, err
		}
		r.opened = false
		if r.index+1 >= len(r.resources) {
			break
		}
		r.index++
		if err := r.openDelegate(ctx, model.NewExecutionContext()); err != nil {
			var zero T
			return zero, err
		}
	}
	var zero T
	return zero, port.ErrNoMoreItems
}

func (r *ResourceReader[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	ec := model.NewExecutionContext()
	if r.opened {
		delegateEC, err := r.delegate.GetExecutionContext(ctx)
		if err != nil {
			return nil, err
		}
		ec.Merge(delegateEC)
	}
	ec.Put(r.key(), r.index)
	return ec, nil
}

func (r *ResourceReader[T]) Close(ctx context.Context) error {
	if !r.opened {
		return nil
	}
	r.opened = false
	return r.delegate.Close(ctx)
}

// ListResources returns the names under prefix on conn that satisfy match, in
// lexical order. A nil match accepts every name.
func ListResources(ctx context.Context, conn storage.StorageConnection, prefix string, match func(name string) bool) ([]string, error) {
	var names []string
	err := conn.List(ctx, prefix, func(name string) error {
		if match == nil || match(name) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list resources under '%s' on '%s': %w", prefix, conn.Name(), err)
	}
	sort.Strings(names)
	return names, nil
}

// HasSuffix returns a ListResources matcher on file name suffix.
func HasSuffix(suffix string) func(string) bool {
	return func(name string) bool { return strings.HasSuffix(name, suffix) }
}
