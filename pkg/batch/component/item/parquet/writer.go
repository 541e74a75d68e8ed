// Package parquet writes chunks as Parquet files on a storage connection.
package parquet

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/hashicorp/go-multierror"
	pq "github.com/xitongsys/parquet-go/parquet"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// PartKey is the ExecutionContext key suffix holding the number of committed part files.
const PartKey = "part.count"

// Config of an ItemWriter. Compression is one of SNAPPY (default), GZIP or NONE.
type Config struct {
	BaseDir     string `mapstructure:"baseDir"`
	Compression string `mapstructure:"compression"`
}

// ItemWriter writes every chunk to its own Parquet file per partition, named
// "<BaseDir>/<partition>/part-NNNNN.parquet". Part numbers are checkpointed, so a
// restarted step overwrites the files of the chunk that was rolled back.
//
// T must carry parquet-go struct tags.
type ItemWriter[T any] struct {
	name      string
	conn      storage.StorageConnection
	cfg       Config
	codec     pq.CompressionCodec
	partition func(T) (string, error)

	parts int
}

var _ port.ItemWriter[any] = (*ItemWriter[any])(nil)

// NewItemWriter returns an ItemWriter. partition may be nil to write every chunk
// into BaseDir directly.
func NewItemWriter[T any](name string, conn storage.StorageConnection, cfg Config, partition func(T) (string, error)) (*ItemWriter[T], error) {
	codec, err := compressionCodec(cfg.Compression)
	if err != nil {
		return nil, exception.NewBatchError(name, fmt.Sprintf("parquet ItemWriter '%s'", name), err, false, false)
	}
	if partition == nil {
		partition = func(T) (string, error) { return "", nil }
	}
	return &ItemWriter[T]{name: name, conn: conn, cfg: cfg, codec: codec, partition: partition}, nil
}

func (w *ItemWriter[T]) key() string { return w.name + "." + PartKey }

func (w *ItemWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	w.parts, _ = ec.GetInt(w.key())
	if w.parts > 0 {
		logger.Infof("parquet ItemWriter '%s': continuing after %d committed part files.", w.name, w.parts)
	}
	return nil
}

func (w *ItemWriter[T]) Write(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	var order []string
	groups := make(map[string][]T)
	for _, item := range items {
		key, err := w.partition(item)
		if err != nil {
			return exception.NewBatchError(w.name, fmt.Sprintf("parquet ItemWriter '%s': failed to resolve partition", w.name), err, false, false)
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], item)
	}

	w.parts++
	var result error
	for _, key := range order {
		if err := w.writeFile(ctx, w.objectName(key), groups[key]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result != nil {
		w.parts--
		return exception.NewBatchError(w.name, fmt.Sprintf("parquet ItemWriter '%s': failed to write part %d", w.name, w.parts+1), result, false, false)
	}
	return nil
}

func (w *ItemWriter[T]) objectName(partition string) string {
	return path.Join(w.cfg.BaseDir, partition, fmt.Sprintf("part-%05d.parquet", w.parts))
}

func (w *ItemWriter[T]) writeFile(ctx context.Context, name string, items []T) (err error) {
	wc, err := w.conn.Create(ctx, name, false)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := wc.Close(); err == nil {
			err = cerr
		}
	}()

	prototype := new(T)
	pw, err := pqwriter.NewParquetWriterFromWriter(wc, prototype, 4)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer for '%s': %w", name, err)
	}
	pw.CompressionType = w.codec
	for _, item := range items {
		if err := pw.Write(item); err != nil {
			return fmt.Errorf("failed to write row to '%s': %w", name, err)
		}
	}
	// WriteStop panics on some schema errors.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panicked finishing '%s': %v", name, r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finish '%s': %w", name, err)
	}
	logger.Debugf("parquet ItemWriter '%s': wrote %d rows to '%s'.", w.name, len(items), name)
	return nil
}

func (w *ItemWriter[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	ec := model.NewExecutionContext()
	ec.Put(w.key(), w.parts)
	return ec, nil
}

func (w *ItemWriter[T]) Close(ctx context.Context) error { return nil }

func compressionCodec(name string) (pq.CompressionCodec, error) {
	switch strings.ToUpper(name) {
	case "SNAPPY", "":
		return pq.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return pq.CompressionCodec_GZIP, nil
	case "NONE", "UNCOMPRESSED":
		return pq.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", name)
	}
}
