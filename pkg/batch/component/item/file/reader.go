package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// ReadCountKey is the ExecutionContext key suffix holding the number of records consumed.
const ReadCountKey = "read.count"

// ParseError reports a line that could not be tokenized or mapped.
type ParseError struct {
	Resource   string
	LineNumber int
	Line       string
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing error at line %d in resource '%s': %v (input: %q)", e.LineNumber, e.Resource, e.Err, e.Line)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrParse matches every *ParseError with errors.Is.
var ErrParse = errors.New("flat file parse error")

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func init() {
	exception.RegisterErrorType("FlatFileParseException", ErrParse)
}

// ReaderOption configures a FlatFileItemReader.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	linesToSkip    int
	skippedLine    func(line string)
	comments       []string
	strict         bool
	skipBlankLines bool
}

// WithLinesToSkip skips header lines at the top of every resource.
func WithLinesToSkip(n int) ReaderOption { return func(c *readerConfig) { c.linesToSkip = n } }

// WithSkippedLinesCallback receives each header line skipped by WithLinesToSkip.
func WithSkippedLinesCallback(fn func(line string)) ReaderOption {
	return func(c *readerConfig) { c.skippedLine = fn }
}

// WithComments ignores lines starting with any of the prefixes.
func WithComments(prefixes ...string) ReaderOption {
	return func(c *readerConfig) { c.comments = prefixes }
}

// WithStrict makes a missing resource an error. It is on by default; when off a
// missing resource reads as empty.
func WithStrict(strict bool) ReaderOption { return func(c *readerConfig) { c.strict = strict } }

// WithBlankLines hands blank lines to the tokenizer instead of ignoring them.
func WithBlankLines() ReaderOption { return func(c *readerConfig) { c.skipBlankLines = false } }

// FlatFileItemReader reads one item per line of a storage object.
// It records the number of consumed records under "<name>.read.count" and skips
// that many records when reopened with a checkpointed ExecutionContext.
type FlatFileItemReader[T any] struct {
	name      string
	conn      storage.StorageConnection
	resource  string
	tokenizer LineTokenizer
	mapper    FieldSetMapper[T]
	cfg       readerConfig

	rc        io.ReadCloser
	scanner   *bufio.Scanner
	lineCount int
	readCount int
}

var _ port.ItemReader[any] = (*FlatFileItemReader[any])(nil)

// NewFlatFileItemReader creates a reader of resource on conn. The resource may be
// empty when a multi-resource reader assigns it through SetResource.
func NewFlatFileItemReader[T any](name string, conn storage.StorageConnection, resource string, tokenizer LineTokenizer, mapper FieldSetMapper[T], opts ...ReaderOption) *FlatFileItemReader[T] {
	cfg := readerConfig{comments: []string{"#"}, strict: true, skipBlankLines: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &FlatFileItemReader[T]{
		name:      name,
		conn:      conn,
		resource:  resource,
		tokenizer: tokenizer,
		mapper:    mapper,
		cfg:       cfg,
	}
}

func (r *FlatFileItemReader[T]) Name() string { return r.name }

// SetResource changes the resource read by the next Open.
func (r *FlatFileItemReader[T]) SetResource(resource string) { r.resource = resource }

func (r *FlatFileItemReader[T]) Resource() string { return r.resource }

func (r *FlatFileItemReader[T]) key() string { return r.name + "." + ReadCountKey }

func (r *FlatFileItemReader[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	r.lineCount, r.readCount = 0, 0
	if r.resource == "" {
		return exception.NewBatchErrorf(r.name, "FlatFileItemReader '%s': no resource set", r.name)
	}

	rc, err := r.conn.Open(ctx, r.resource)
	if errors.Is(err, storage.ErrObjectNotFound) && !r.cfg.strict {
		logger.Warnf("FlatFileItemReader '%s': resource '%s' does not exist; reading nothing.", r.name, r.resource)
		return nil
	}
	if err != nil {
		return exception.NewBatchError(r.name, fmt.Sprintf("FlatFileItemReader '%s': failed to open '%s'", r.name, r.resource), err, false, false)
	}
	r.rc = rc
	r.scanner = bufio.NewScanner(rc)
	r.scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for i := 0; i < r.cfg.linesToSkip; i++ {
		line, ok := r.nextLine()
		if !ok {
			break
		}
		if r.cfg.skippedLine != nil {
			r.cfg.skippedLine(line)
		}
	}

	restored, _ := ec.GetInt(r.key())
	for r.readCount < restored {
		if _, ok := r.nextRecord(); !ok {
			break
		}
		r.readCount++
	}
	if restored > 0 {
		logger.Infof("FlatFileItemReader '%s': resumed '%s' after %d records.", r.name, r.resource, r.readCount)
	}
	return r.scanErr()
}

func (r *FlatFileItemReader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if r.scanner == nil {
		return zero, port.ErrNoMoreItems
	}
	line, ok := r.nextRecord()
	if !ok {
		err := r.scanErr()
		// The scanner stops for good after an error, so the error is reported once.
		r.scanner = nil
		if err != nil {
			return zero, err
		}
		return zero, port.ErrNoMoreItems
	}
	r.readCount++

	fs, err := r.tokenizer.Tokenize(line)
	if err != nil {
		return zero, &ParseError{Resource: r.resource, LineNumber: r.lineCount, Line: line, Err: err}
	}
	item, err := r.mapper.MapFieldSet(fs)
	if err != nil {
		return zero, &ParseError{Resource: r.resource, LineNumber: r.lineCount, Line: line, Err: err}
	}
	return item, nil
}

func (r *FlatFileItemReader[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	ec := model.NewExecutionContext()
	ec.Put(r.key(), r.readCount)
	return ec, nil
}

func (r *FlatFileItemReader[T]) Close(ctx context.Context) error {
	r.scanner = nil
	if r.rc == nil {
		return nil
	}
	err := r.rc.Close()
	r.rc = nil
	return err
}

func (r *FlatFileItemReader[T]) nextLine() (string, bool) {
	if !r.scanner.Scan() {
		return "", false
	}
	r.lineCount++
	return strings.TrimSuffix(r.scanner.Text(), "\r"), true
}

// nextRecord returns the next line that is neither blank nor a comment.
func (r *FlatFileItemReader[T]) nextRecord() (string, bool) {
	for {
		line, ok := r.nextLine()
		if !ok {
			return "", false
		}
		if r.cfg.skipBlankLines && strings.TrimSpace(line) == "" {
			continue
		}
		if r.isComment(line) {
			continue
		}
		return line, true
	}
}

func (r *FlatFileItemReader[T]) isComment(line string) bool {
	for _, prefix := range r.cfg.comments {
		if prefix != "" && strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func (r *FlatFileItemReader[T]) scanErr() error {
	if r.scanner == nil {
		return nil
	}
	if err := r.scanner.Err(); err != nil {
		return fmt.Errorf("FlatFileItemReader '%s': failed to read '%s': %w", r.name, r.resource, err)
	}
	return nil
}
