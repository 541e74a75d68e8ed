// Package item provides generic readers, processors and writers that need no
// external resource.
package item

import (
	"context"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
)

// NoOpItemReader is always exhausted.
type NoOpItemReader[O any] struct {
	port.NoOpItemStream
}

func NewNoOpItemReader[O any]() *NoOpItemReader[O] { return &NoOpItemReader[O]{} }

func (r *NoOpItemReader[O]) Read(ctx context.Context) (O, error) {
	var zero O
	return zero, port.ErrNoMoreItems
}

// NoOpItemWriter discards every chunk.
type NoOpItemWriter[I any] struct {
	port.NoOpItemStream
}

func NewNoOpItemWriter[I any]() *NoOpItemWriter[I] { return &NoOpItemWriter[I]{} }

func (w *NoOpItemWriter[I]) Write(ctx context.Context, items []I) error { return nil }
