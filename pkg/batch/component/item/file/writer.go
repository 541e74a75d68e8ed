package file

import (
	"bufio"
	"context"
	"fmt"
	"io"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// ExecutionContext key suffixes of FlatFileItemWriter.
const (
	PositionKey     = "position"
	WrittenCountKey = "written"
)

// HeaderFooterCallback writes header or footer lines. Each line written through w
// gets the writer's line separator appended.
type HeaderFooterCallback func(w io.Writer) error

// StaticLines returns a callback writing fixed lines.
func StaticLines(lines ...string) HeaderFooterCallback {
	return func(w io.Writer) error {
		for _, line := range lines {
			if _, err := io.WriteString(w, line); err != nil {
				return err
			}
		}
		return nil
	}
}

// WriterOption configures a FlatFileItemWriter.
type WriterOption func(*writerConfig)

type writerConfig struct {
	header        HeaderFooterCallback
	footer        HeaderFooterCallback
	lineSeparator string
}

func WithHeader(cb HeaderFooterCallback) WriterOption { return func(c *writerConfig) { c.header = cb } }
func WithFooter(cb HeaderFooterCallback) WriterOption { return func(c *writerConfig) { c.footer = cb } }

// WithLineSeparator replaces the default "\n".
func WithLineSeparator(sep string) WriterOption {
	return func(c *writerConfig) { c.lineSeparator = sep }
}

// FlatFileItemWriter writes one line per item to a storage object. The header is
// written when the object is created and the footer when the writer is closed.
//
// The byte position after every chunk is recorded under "<name>.position". When
// reopened with a checkpointed ExecutionContext the committed prefix is kept, any
// bytes written after it are dropped, and writing continues without a new header.
type FlatFileItemWriter[T any] struct {
	name       string
	conn       storage.StorageConnection
	resource   string
	aggregator LineAggregator[T]
	cfg        writerConfig

	wc       io.WriteCloser
	buf      *bufio.Writer
	position int64
	written  int
}

var _ port.ItemWriter[any] = (*FlatFileItemWriter[any])(nil)

func NewFlatFileItemWriter[T any](name string, conn storage.StorageConnection, resource string, aggregator LineAggregator[T], opts ...WriterOption) *FlatFileItemWriter[T] {
	cfg := writerConfig{lineSeparator: "\n"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &FlatFileItemWriter[T]{
		name:       name,
		conn:       conn,
		resource:   resource,
		aggregator: aggregator,
		cfg:        cfg,
	}
}

func (w *FlatFileItemWriter[T]) Name() string { return w.name }

// SetResource changes the resource written by the next Open.
func (w *FlatFileItemWriter[T]) SetResource(resource string) { w.resource = resource }

func (w *FlatFileItemWriter[T]) Resource() string { return w.resource }

func (w *FlatFileItemWriter[T]) key(suffix string) string { return w.name + "." + suffix }

func (w *FlatFileItemWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	if w.resource == "" {
		return exception.NewBatchErrorf(w.name, "FlatFileItemWriter '%s': no resource set", w.name)
	}
	position, restarted := ec.GetInt64(w.key(PositionKey))
	w.written, _ = ec.GetInt(w.key(WrittenCountKey))

	var prefix []byte
	if restarted {
		var err error
		if prefix, err = w.committedPrefix(ctx, position); err != nil {
			return err
		}
	}

	wc, err := w.conn.Create(ctx, w.resource, false)
	if err != nil {
		return exception.NewBatchError(w.name, fmt.Sprintf("FlatFileItemWriter '%s': failed to create '%s'", w.name, w.resource), err, false, false)
	}
	w.wc = wc
	w.buf = bufio.NewWriter(&countingWriter{w: wc, n: &w.position})
	w.position = 0

	if restarted {
		if _, err := w.buf.Write(prefix); err != nil {
			return w.fail("restore", err)
		}
		logger.Infof("FlatFileItemWriter '%s': reopened '%s' at byte %d (%d lines written).", w.name, w.resource, position, w.written)
	} else if w.cfg.header != nil {
		if err := w.cfg.header(&lineWriter{w: w.buf, sep: w.cfg.lineSeparator}); err != nil {
			return w.fail("write header of", err)
		}
	}
	if err := w.buf.Flush(); err != nil {
		return w.fail("write", err)
	}
	return nil
}

// committedPrefix reads the first position bytes of the existing resource.
func (w *FlatFileItemWriter[T]) committedPrefix(ctx context.Context, position int64) ([]byte, error) {
	rc, err := w.conn.Open(ctx, w.resource)
	if err != nil {
		return nil, exception.NewBatchError(w.name, fmt.Sprintf("FlatFileItemWriter '%s': cannot restart, failed to open '%s'", w.name, w.resource), err, false, false)
	}
	defer rc.Close()
	prefix, err := io.ReadAll(io.LimitReader(rc, position))
	if err != nil {
		return nil, exception.NewBatchError(w.name, fmt.Sprintf("FlatFileItemWriter '%s': failed to read '%s'", w.name, w.resource), err, false, false)
	}
	if int64(len(prefix)) < position {
		return nil, exception.NewBatchErrorf(w.name, "FlatFileItemWriter '%s': '%s' is shorter (%d bytes) than the committed position %d", w.name, w.resource, len(prefix), position)
	}
	return prefix, nil
}

func (w *FlatFileItemWriter[T]) Write(ctx context.Context, items []T) error {
	if w.buf == nil {
		return exception.NewBatchErrorf(w.name, "FlatFileItemWriter '%s' is not open", w.name)
	}
	for _, item := range items {
		line, err := w.aggregator.Aggregate(item)
		if err != nil {
			return fmt.Errorf("FlatFileItemWriter '%s': failed to format item: %w", w.name, err)
		}
		if _, err := w.buf.WriteString(line + w.cfg.lineSeparator); err != nil {
			return w.fail("write", err)
		}
		w.written++
	}
	if err := w.buf.Flush(); err != nil {
		return w.fail("write", err)
	}
	return nil
}

// WriteCount returns the number of item lines in the current resource.
func (w *FlatFileItemWriter[T]) WriteCount() int { return w.written }

func (w *FlatFileItemWriter[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	ec := model.NewExecutionContext()
	ec.Put(w.key(PositionKey), w.position)
	ec.Put(w.key(WrittenCountKey), w.written)
	return ec, nil
}

// Close writes the footer and completes the resource.
func (w *FlatFileItemWriter[T]) Close(ctx context.Context) error {
	if w.wc == nil {
		return nil
	}
	var err error
	if w.cfg.footer != nil {
		err = w.cfg.footer(&lineWriter{w: w.buf, sep: w.cfg.lineSeparator})
	}
	if ferr := w.buf.Flush(); err == nil {
		err = ferr
	}
	if cerr := w.wc.Close(); err == nil {
		err = cerr
	}
	w.wc, w.buf = nil, nil
	if err != nil {
		return fmt.Errorf("FlatFileItemWriter '%s': failed to close '%s': %w", w.name, w.resource, err)
	}
	logger.Debugf("FlatFileItemWriter '%s': closed '%s' (%d lines).", w.name, w.resource, w.written)
	return nil
}

func (w *FlatFileItemWriter[T]) fail(op string, err error) error {
	return fmt.Errorf("FlatFileItemWriter '%s': failed to %s '%s': %w", w.name, op, w.resource, err)
}

type countingWriter struct {
	w io.Writer
	n *int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	*c.n += int64(n)
	return n, err
}

// lineWriter terminates every Write with sep.
type lineWriter struct {
	w   io.Writer
	sep string
}

func (l *lineWriter) Write(p []byte) (int, error) {
	if _, err := l.w.Write(p); err != nil {
		return 0, err
	}
	if _, err := io.WriteString(l.w, l.sep); err != nil {
		return 0, err
	}
	return len(p), nil
}
