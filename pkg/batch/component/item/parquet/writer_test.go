package parquet_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/config"
	"github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/local"
	"github.com/kangwooc/spring-batch/pkg/batch/component/item/parquet"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
)

type failure struct {
	ErrorID  string `parquet:"name=error_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Severity string `parquet:"name=severity, type=BYTE_ARRAY, convertedtype=UTF8"`
	Process  int64  `parquet:"name=process_id, type=INT64"`
}

func TestItemWriter_WritesOnePartPerChunkAndPartition(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	conn, err := local.NewLocalAdapter(storageconfig.StorageConfig{BaseDir: dir}, "test")
	require.NoError(t, err)

	w, err := parquet.NewItemWriter[failure]("failures", conn, parquet.Config{BaseDir: "export"},
		func(f failure) (string, error) { return "severity=" + f.Severity, nil })
	require.NoError(t, err)
	require.NoError(t, w.Open(ctx, model.NewExecutionContext()))
	require.NoError(t, w.Write(ctx, []failure{{"E1", "HIGH", 1}, {"E2", "LOW", 2}}))
	require.NoError(t, w.Write(ctx, []failure{{"E3", "HIGH", 3}}))
	require.NoError(t, w.Close(ctx))

	for _, name := range []string{
		"export/severity=HIGH/part-00001.parquet",
		"export/severity=LOW/part-00001.parquet",
		"export/severity=HIGH/part-00002.parquet",
	} {
		b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		require.NoError(t, err, name)
		assert.Equal(t, "PAR1", string(b[:4]), name)
	}

	ec, _ := w.GetExecutionContext(ctx)
	parts, _ := ec.GetInt("failures.part.count")
	assert.Equal(t, 2, parts)
}

func TestNewItemWriter_RejectsUnknownCompression(t *testing.T) {
	_, err := parquet.NewItemWriter[failure]("w", nil, parquet.Config{Compression: "LZMA"}, nil)
	assert.Error(t, err)
}
