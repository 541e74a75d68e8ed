package item

import (
	"context"
	"fmt"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// LogItemWriter logs every item at info level.
type LogItemWriter[I any] struct {
	port.NoOpItemStream
	prefix string
	format func(item I) string
}

// NewLogItemWriter logs items with %+v. A non-nil format replaces it.
func NewLogItemWriter[I any](prefix string, format func(item I) string) *LogItemWriter[I] {
	if format == nil {
		format = func(item I) string { return fmt.Sprintf("%+v", item) }
	}
	return &LogItemWriter[I]{prefix: prefix, format: format}
}

func (w *LogItemWriter[I]) Write(ctx context.Context, items []I) error {
	for _, item := range items {
		logger.Infof("%s%s", w.prefix, w.format(item))
	}
	return nil
}
