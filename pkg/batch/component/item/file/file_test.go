package file_test

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	storageconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/config"
	"github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/local"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/component/item/file"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

type systemFailure struct {
	ErrorID       string    `batch:"errorId"`
	ErrorDateTime time.Time `batch:"errorDateTime"`
	Severity      string    `batch:"severity"`
	ProcessID     int       `batch:"processId"`
	ErrorMessage  string    `batch:"errorMessage"`
}

type csvFailure struct {
	ErrorID       string `batch:"errorId"`
	ErrorDateTime string `batch:"errorDateTime"`
	Severity      string `batch:"severity"`
	ProcessID     int    `batch:"processId"`
	ErrorMessage  string `batch:"errorMessage"`
}

var names = []string{"errorId", "errorDateTime", "severity", "processId", "errorMessage"}

func conn(t *testing.T) (storage.StorageConnection, string) {
	t.Helper()
	dir := t.TempDir()
	c, err := local.NewLocalAdapter(storageconfig.StorageConfig{BaseDir: dir}, "test")
	require.NoError(t, err)
	return c, dir
}

func put(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func readAll[T any](t *testing.T, r port.ItemReader[T]) ([]T, []error) {
	t.Helper()
	var items []T
	var errs []error
	for {
		item, err := r.Read(context.Background())
		if errors.Is(err, port.ErrNoMoreItems) {
			return items, errs
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, item)
	}
}

func TestDelimitedLineTokenizer(t *testing.T) {
	tok := file.NewDelimitedLineTokenizer("a", "b", "c")

	fs, err := tok.Tokenize(`1,"two, with comma","say ""hi"""`)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "two, with comma", `say "hi"`}, fs.Values())
	v, _ := fs.Get("b")
	assert.Equal(t, "two, with comma", v)

	_, err = tok.Tokenize("1,2")
	assert.ErrorIs(t, err, file.ErrIncorrectTokenCount)

	tok.Strict = false
	fs, err = tok.Tokenize("1,2")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": ""}, fs.Map())

	pipe := &file.DelimitedLineTokenizer{Delimiter: "||", Quote: '\'', Names: []string{"x", "y"}, Strict: true}
	fs, err = pipe.Tokenize("'a||b'||c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a||b", "c"}, fs.Values())
}

func TestFixedLengthTokenizer(t *testing.T) {
	tok := file.NewFixedLengthTokenizer([]file.Range{{Min: 1, Max: 3}, {Min: 4, Max: 8}, {Min: 9}}, "id", "name", "rest")

	fs, err := tok.Tokenize("007James  licensed")
	require.NoError(t, err)
	assert.Equal(t, []string{"007", "James", "licensed"}, fs.Values())

	short := file.NewFixedLengthTokenizer([]file.Range{{Min: 1, Max: 3}, {Min: 4, Max: 10}}, "id", "name")
	_, err = short.Tokenize("007Bond")
	assert.ErrorIs(t, err, file.ErrIncorrectTokenCount)

	short.Strict = false
	fs, err = short.Tokenize("007Bond")
	require.NoError(t, err)
	assert.Equal(t, []string{"007", "Bond"}, fs.Values())
}

func TestBeanFieldSetMapper_WeakTypingAndConverters(t *testing.T) {
	m := file.NewBeanFieldSetMapper[systemFailure](
		file.WithFieldConverter("errorDateTime", file.DateTimeConverter("2006-01-02 15:04:05")))
	fs := file.NewFieldSet(names, []string{"ERR001", "2024-01-15 10:30:00", "CRITICAL", "1234", "disk failure"})

	got, err := m.MapFieldSet(fs)
	require.NoError(t, err)
	assert.Equal(t, "ERR001", got.ErrorID)
	assert.Equal(t, 1234, got.ProcessID)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), got.ErrorDateTime)

	_, err = m.MapFieldSet(file.NewFieldSet(names, []string{"ERR002", "yesterday", "LOW", "1", "x"}))
	assert.ErrorContains(t, err, "errorDateTime")

	ptr, err := file.NewBeanFieldSetMapper[*csvFailure]().MapFieldSet(fs)
	require.NoError(t, err)
	assert.Equal(t, "CRITICAL", ptr.Severity)
}

func TestFlatFileItemReader_FixedWidthWithHeader(t *testing.T) {
	c, dir := conn(t)
	put(t, dir, "failures.txt", ""+
		"errorId errorDateTime        severity  procIderrorMessage\n"+
		"ERR001  2024-01-15 10:30:00  CRITICAL  1234  SYSTEM CRASH DETECT \n"+
		"\n"+
		"ERR002  2024-01-15 10:31:00  FATAL     1235  MEMORY OVERFLOW FAIL\n")

	var header []string
	r := file.NewFlatFileItemReader[systemFailure]("dateTimeEditorSystemFailureItemReader", c, "failures.txt",
		&file.FixedLengthTokenizer{
			Columns: []file.Range{{Min: 1, Max: 8}, {Min: 9, Max: 29}, {Min: 30, Max: 39}, {Min: 40, Max: 45}, {Min: 46, Max: 66}},
			Names:   names,
		},
		file.NewBeanFieldSetMapper[systemFailure](file.WithFieldConverter("errorDateTime", file.DateTimeConverter("2006-01-02 15:04:05"))),
		file.WithLinesToSkip(1),
		file.WithSkippedLinesCallback(func(line string) { header = append(header, line) }),
	)
	require.NoError(t, r.Open(context.Background(), model.NewExecutionContext()))
	defer r.Close(context.Background())

	items, errs := readAll[systemFailure](t, r)
	require.Empty(t, errs)
	require.Len(t, items, 2)
	assert.Equal(t, "SYSTEM CRASH DETECT", items[0].ErrorMessage)
	assert.Equal(t, 1235, items[1].ProcessID)
	assert.Equal(t, 10, items[1].ErrorDateTime.Hour())
	assert.Len(t, header, 1)

	ec, err := r.GetExecutionContext(context.Background())
	require.NoError(t, err)
	n, _ := ec.GetInt("dateTimeEditorSystemFailureItemReader.read.count")
	assert.Equal(t, 2, n)
}

func TestFlatFileItemReader_ParseErrorIsRegisteredAndCounted(t *testing.T) {
	c, dir := conn(t)
	put(t, dir, "in.csv", "errorId,errorDateTime,severity,processId,errorMessage\n"+
		"ERR001,2024-01-15 10:30:00,CRITICAL,1234,crash\n"+
		"ERR002,2024-01-15 10:31:00,FATAL,not-a-number,overflow\n"+
		"ERR003,2024-01-15 10:32:00,LOW,7,noise\n")

	r := file.NewFlatFileItemReader[csvFailure]("systemFailureItemReader", c, "in.csv",
		file.NewDelimitedLineTokenizer(names...), file.NewBeanFieldSetMapper[csvFailure](), file.WithLinesToSkip(1))
	require.NoError(t, r.Open(context.Background(), model.NewExecutionContext()))
	defer r.Close(context.Background())

	items, errs := readAll[csvFailure](t, r)
	assert.Len(t, items, 2)
	require.Len(t, errs, 1)
	var perr *file.ParseError
	require.ErrorAs(t, errs[0], &perr)
	assert.Equal(t, 3, perr.LineNumber)
	assert.True(t, exception.IsErrorOfType(errs[0], "FlatFileParseException"))

	ec, _ := r.GetExecutionContext(context.Background())
	n, _ := ec.GetInt("systemFailureItemReader.read.count")
	assert.Equal(t, 3, n, "a record that failed to parse is consumed")
}

func TestFlatFileItemReader_ScannerErrorIsReportedOnce(t *testing.T) {
	c, dir := conn(t)
	put(t, dir, "in.csv", "ERR001,a,S,1,m\nERR002,a,S,2,"+strings.Repeat("x", 2*1024*1024)+"\nERR003,a,S,3,m\n")

	r := file.NewFlatFileItemReader[csvFailure]("r", c, "in.csv",
		file.NewDelimitedLineTokenizer(names...), file.NewBeanFieldSetMapper[csvFailure]())
	require.NoError(t, r.Open(context.Background(), model.NewExecutionContext()))
	defer r.Close(context.Background())

	items, errs := readAll[csvFailure](t, r)
	require.Len(t, items, 1)
	assert.Equal(t, "ERR001", items[0].ErrorID)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], bufio.ErrTooLong)
}

func TestFlatFileItemReader_RestartSkipsCommittedRecords(t *testing.T) {
	c, dir := conn(t)
	put(t, dir, "in.csv", "h\n# comment\nERR001,a,S,1,m\nERR002,a,S,2,m\nERR003,a,S,3,m\n")
	newReader := func() *file.FlatFileItemReader[csvFailure] {
		return file.NewFlatFileItemReader[csvFailure]("r", c, "in.csv",
			file.NewDelimitedLineTokenizer(names...), file.NewBeanFieldSetMapper[csvFailure](), file.WithLinesToSkip(1))
	}

	ec := model.NewExecutionContext()
	ec.Put("r.read.count", 2)
	r := newReader()
	require.NoError(t, r.Open(context.Background(), ec))
	items, _ := readAll[csvFailure](t, r)
	require.NoError(t, r.Close(context.Background()))
	require.Len(t, items, 1)
	assert.Equal(t, "ERR003", items[0].ErrorID)
}

func TestFlatFileItemReader_MissingResource(t *testing.T) {
	c, _ := conn(t)
	strict := file.NewFlatFileItemReader[csvFailure]("r", c, "absent.csv", file.NewDelimitedLineTokenizer(), file.NewBeanFieldSetMapper[csvFailure]())
	assert.ErrorIs(t, strict.Open(context.Background(), model.NewExecutionContext()), storage.ErrObjectNotFound)

	lenient := file.NewFlatFileItemReader[csvFailure]("r", c, "absent.csv", file.NewDelimitedLineTokenizer(), file.NewBeanFieldSetMapper[csvFailure](), file.WithStrict(false))
	require.NoError(t, lenient.Open(context.Background(), model.NewExecutionContext()))
	_, err := lenient.Read(context.Background())
	assert.ErrorIs(t, err, port.ErrNoMoreItems)
}

type deathNote struct {
	VictimID      string `batch:"victimId"`
	VictimName    string `batch:"victimName"`
	ExecutionDate string `batch:"executionDate"`
	CauseOfDeath  string `batch:"causeOfDeath"`
}

func notes(from, to int) []deathNote {
	var out []deathNote
	for i := from; i <= to; i++ {
		out = append(out, deathNote{VictimID: "KILL-" + string(rune('0'+i)), VictimName: "v", ExecutionDate: "2024-01-01", CauseOfDeath: "c"})
	}
	return out
}

func TestFormattedLineAggregator(t *testing.T) {
	agg := file.NewFormattedLineAggregator[deathNote]("ID: %s | date: %s | victim: %s | cause: %s", "victimId", "executionDate", "victimName", "causeOfDeath")
	line, err := agg.Aggregate(deathNote{VictimID: "KILL-001", VictimName: "victim1", ExecutionDate: "2024-01-02", CauseOfDeath: "heart attack"})
	require.NoError(t, err)
	assert.Equal(t, "ID: KILL-001 | date: 2024-01-02 | victim: victim1 | cause: heart attack", line)

	_, err = file.NewFormattedLineAggregator[deathNote]("%s", "missing").Aggregate(deathNote{})
	assert.Error(t, err)

	csv, err := file.NewDelimitedLineAggregator[map[string]any](";", "a", "b").Aggregate(map[string]any{"a": 1, "b": "x"})
	require.NoError(t, err)
	assert.Equal(t, "1;x", csv)
}

func TestFlatFileItemWriter_HeaderFooterAndRestart(t *testing.T) {
	c, dir := conn(t)
	agg := file.NewFormattedLineAggregator[deathNote]("%s", "victimId")
	newWriter := func() *file.FlatFileItemWriter[deathNote] {
		return file.NewFlatFileItemWriter[deathNote]("w", c, "out/notes.txt", agg,
			file.WithHeader(file.StaticLines("== header ==")),
			file.WithFooter(file.StaticLines("== footer ==")))
	}
	ctx := context.Background()

	w := newWriter()
	require.NoError(t, w.Open(ctx, model.NewExecutionContext()))
	require.NoError(t, w.Write(ctx, notes(1, 2)))
	committed, err := w.GetExecutionContext(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, notes(3, 3)), "written but never committed")

	restarted := newWriter()
	require.NoError(t, restarted.Open(ctx, committed))
	require.NoError(t, restarted.Write(ctx, notes(4, 4)))
	require.NoError(t, restarted.Close(ctx))

	b, err := os.ReadFile(filepath.Join(dir, "out", "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "== header ==\nKILL-1\nKILL-2\nKILL-4\n== footer ==\n", string(b))
	assert.Equal(t, 3, restarted.WriteCount())
}
