package multi_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/config"
	"github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/local"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/component/item/file"
	"github.com/kangwooc/spring-batch/pkg/batch/component/item/multi"
)

type record struct {
	ID   string `batch:"id"`
	Name string `batch:"name"`
}

func TestResourceWriter_SplitsByItemCount(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	conn, err := local.NewLocalAdapter(storageconfig.StorageConfig{BaseDir: dir}, "test")
	require.NoError(t, err)

	delegate := file.NewFlatFileItemWriter[record]("delegate", conn, "", file.NewFormattedLineAggregator[record]("%s", "id"),
		file.WithHeader(file.StaticLines("H")), file.WithFooter(file.StaticLines("F")))
	w := multi.NewResourceWriter[record]("multi", "out/records", nil, 3, delegate)
	require.NoError(t, w.Open(ctx, model.NewExecutionContext()))

	var items []record
	for i := 1; i <= 7; i++ {
		items = append(items, record{ID: fmt.Sprint(i)})
	}
	require.NoError(t, w.Write(ctx, items[:5]), "one chunk crossing a resource boundary")
	require.NoError(t, w.Write(ctx, items[5:]))
	require.NoError(t, w.Close(ctx))

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	want := map[string]string{
		"records.1": "H\n1\n2\n3\nF\n",
		"records.2": "H\n4\n5\n6\nF\n",
		"records.3": "H\n7\nF\n",
	}
	for name, content := range want {
		b, err := os.ReadFile(filepath.Join(dir, "out", name))
		require.NoError(t, err)
		assert.Equal(t, content, string(b), name)
	}
}

func TestResourceWriter_ExactMultipleCreatesNoEmptyResource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	conn, _ := local.NewLocalAdapter(storageconfig.StorageConfig{BaseDir: dir}, "test")
	delegate := file.NewFlatFileItemWriter[record]("d", conn, "", file.NewFormattedLineAggregator[record]("%s", "id"))
	w := multi.NewResourceWriter[record]("m", "r", func(i int) string { return fmt.Sprintf("-%02d.txt", i) }, 2, delegate)

	require.NoError(t, w.Open(ctx, model.NewExecutionContext()))
	require.NoError(t, w.Write(ctx, []record{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}))
	require.NoError(t, w.Close(ctx))

	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"r-01.txt", "r-02.txt"}, names)
}

func TestResourceWriter_RestartReopensCurrentResource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	conn, _ := local.NewLocalAdapter(storageconfig.StorageConfig{BaseDir: dir}, "test")
	newWriter := func() *multi.ResourceWriter[record] {
		delegate := file.NewFlatFileItemWriter[record]("d", conn, "", file.NewFormattedLineAggregator[record]("%s", "id"),
			file.WithHeader(file.StaticLines("H")), file.WithFooter(file.StaticLines("F")))
		return multi.NewResourceWriter[record]("m", "part", nil, 3, delegate)
	}

	first := newWriter()
	require.NoError(t, first.Open(ctx, model.NewExecutionContext()))
	require.NoError(t, first.Write(ctx, []record{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}))
	checkpoint, err := first.GetExecutionContext(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Write(ctx, []record{{ID: "lost"}}))

	second := newWriter()
	require.NoError(t, second.Open(ctx, checkpoint))
	require.NoError(t, second.Write(ctx, []record{{ID: "5"}, {ID: "6"}, {ID: "7"}}))
	require.NoError(t, second.Close(ctx))

	read := func(name string) string {
		b, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return string(b)
	}
	assert.Equal(t, "H\n1\n2\n3\nF\n", read("part.1"))
	assert.Equal(t, "H\n4\n5\n6\nF\n", read("part.2"))
	assert.Equal(t, "H\n7\nF\n", read("part.3"))
}

func TestResourceReader_ReadsAllResourcesInOrder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "in"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in", "a.csv"), []byte("id,name\n1,alpha\n2,beta\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in", "b.csv"), []byte("id,name\n3,gamma\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in", "notes.txt"), []byte("ignored"), 0o644))
	conn, _ := local.NewLocalAdapter(storageconfig.StorageConfig{BaseDir: dir}, "test")

	resources, err := multi.ListResources(ctx, conn, "in/", multi.HasSuffix(".csv"))
	require.NoError(t, err)
	require.Equal(t, []string{"in/a.csv", "in/b.csv"}, resources)

	newReader := func() *multi.ResourceReader[record] {
		delegate := file.NewFlatFileItemReader[record]("d", conn, "", file.NewDelimitedLineTokenizer("id", "name"),
			file.NewBeanFieldSetMapper[record](), file.WithLinesToSkip(1))
		return multi.NewResourceReader[record]("m", resources, delegate)
	}

	r := newReader()
	require.NoError(t, r.Open(ctx, model.NewExecutionContext()))
	var ids []string
	var checkpoint model.ExecutionContext
	for {
		item, err := r.Read(ctx)
		if errors.Is(err, port.ErrNoMoreItems) {
			break
		}
		require.NoError(t, err)
		ids = append(ids, item.ID)
		if item.ID == "1" {
			checkpoint, err = r.GetExecutionContext(ctx)
			require.NoError(t, err)
		}
	}
	require.NoError(t, r.Close(ctx))
	assert.Equal(t, "1,2,3", strings.Join(ids, ","))

	restarted := newReader()
	require.NoError(t, restarted.Open(ctx, checkpoint))
	var rest []string
	for {
		item, err := restarted.Read(ctx)
		if errors.Is(err, port.ErrNoMoreItems) {
			break
		}
		require.NoError(t, err)
		rest = append(rest, item.ID)
	}
	assert.Equal(t, []string{"2", "3"}, rest)
}

func TestResourceReader_NoResources(t *testing.T) {
	ctx := context.Background()
	conn, _ := local.NewLocalAdapter(storageconfig.StorageConfig{BaseDir: t.TempDir()}, "test")
	delegate := file.NewFlatFileItemReader[record]("d", conn, "", file.NewDelimitedLineTokenizer("id", "name"), file.NewBeanFieldSetMapper[record]())

	lenient := multi.NewResourceReader[record]("m", nil, delegate)
	require.NoError(t, lenient.Open(ctx, model.NewExecutionContext()))
	_, err := lenient.Read(ctx)
	assert.ErrorIs(t, err, port.ErrNoMoreItems)

	assert.Error(t, multi.NewResourceReader[record]("m", nil, delegate).Strict(true).Open(ctx, model.NewExecutionContext()))
}
