package job

import (
	"context"
	"path"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	"github.com/kangwooc/spring-batch/pkg/batch/component/item"
	"github.com/kangwooc/spring-batch/pkg/batch/component/item/file"
	"github.com/kangwooc/spring-batch/pkg/batch/component/item/multi"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	config "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/factory"

	"github.com/kangwooc/spring-batch/example/system/internal/domain"
)

const (
	SystemFailureJobName      = "systemFailureJob"
	MultiSystemFailureJobName = "multiSystemFailureJob"

	SystemFailureItemReader                  = "systemFailureItemReader"
	FixedSizeFlatFileSystemFailureItemReader = "fixedSizeFlatFileSystemFailureItemReader"
	DateTimeEditorSystemFailureItemReader    = "dateTimeEditorSystemFailureItemReader"
	MultiSystemFailureItemReader             = "multiSystemFailureItemReader"

	// failureChunkSize is the commit interval of both failure report steps.
	failureChunkSize = 10
)

// Failure report resources read by multiSystemFailureJob, relative to inputFilePath.
var multiFailureResources = []string{"critical-failures.csv", "normal-failures.csv"}

var failureFieldNames = []string{"errorId", "errorDateTime", "severity", "processId", "errorMessage"}

// failureColumns are the fixed-width columns of a failure report.
var failureColumns = []file.Range{
	{Min: 1, Max: 8},
	{Min: 9, Max: 29},
	{Min: 30, Max: 39},
	{Min: 40, Max: 45},
	{Min: 46, Max: 66},
}

func failureMapper() *file.BeanFieldSetMapper[domain.SystemFailure] {
	return file.NewBeanFieldSetMapper[domain.SystemFailure](
		file.WithFieldConverter("errorDateTime", file.DateTimeConverter(domain.FailureDateTimeLayout)),
	)
}

func newDelimitedFailureReader(name string, conn storage.StorageConnection, resource string) *file.FlatFileItemReader[domain.SystemFailure] {
	return file.NewFlatFileItemReader(name, conn, resource,
		file.NewDelimitedLineTokenizer(failureFieldNames...), failureMapper(), file.WithLinesToSkip(1))
}

// defaultStorage resolves the connection the failure reports are read from.
func defaultStorage(ctx context.Context, resolver *storage.ConnectionResolver) (storage.StorageConnection, error) {
	return resolver.ResolveStorageConnection(ctx, config.DefaultStorageName)
}

// NewSystemFailureItemReaderDefinition reads a comma separated report with a header line.
func NewSystemFailureItemReaderDefinition(resolver *storage.ConnectionResolver) scope.Definition {
	return scope.Definition{
		Name:         SystemFailureItemReader,
		Kind:         scope.Step,
		Placeholders: []scope.Placeholder{scope.Param("inputFile", scope.String)},
		Build: func(ctx context.Context, v scope.Values) (any, error) {
			conn, err := defaultStorage(ctx, resolver)
			if err != nil {
				return nil, err
			}
			return newDelimitedFailureReader(SystemFailureItemReader, conn, v.String("inputFile")), nil
		},
	}
}

// NewFixedSizeSystemFailureItemReaderDefinition reads a fixed-width report without a header line.
func NewFixedSizeSystemFailureItemReaderDefinition(resolver *storage.ConnectionResolver) scope.Definition {
	return scope.Definition{
		Name:         FixedSizeFlatFileSystemFailureItemReader,
		Kind:         scope.Step,
		Placeholders: []scope.Placeholder{scope.Param("inputFile", scope.String)},
		Build: func(ctx context.Context, v scope.Values) (any, error) {
			conn, err := defaultStorage(ctx, resolver)
			if err != nil {
				return nil, err
			}
			return file.NewFlatFileItemReader(FixedSizeFlatFileSystemFailureItemReader, conn, v.String("inputFile"),
				file.NewFixedLengthTokenizer(failureColumns, failureFieldNames...), failureMapper()), nil
		},
	}
}

// NewDateTimeEditorSystemFailureItemReaderDefinition reads a fixed-width report with a
// header line, parsing errorDateTime as "yyyy-MM-dd HH:mm:ss".
func NewDateTimeEditorSystemFailureItemReaderDefinition(resolver *storage.ConnectionResolver) scope.Definition {
	return scope.Definition{
		Name:         DateTimeEditorSystemFailureItemReader,
		Kind:         scope.Step,
		Placeholders: []scope.Placeholder{scope.Param("inputFile", scope.String)},
		Build: func(ctx context.Context, v scope.Values) (any, error) {
			conn, err := defaultStorage(ctx, resolver)
			if err != nil {
				return nil, err
			}
			return file.NewFlatFileItemReader(DateTimeEditorSystemFailureItemReader, conn, v.String("inputFile"),
				file.NewFixedLengthTokenizer(failureColumns, failureFieldNames...), failureMapper(),
				file.WithLinesToSkip(1)), nil
		},
	}
}

// NewMultiSystemFailureItemReaderDefinition reads the critical and then the normal
// failure report found under inputFilePath.
func NewMultiSystemFailureItemReaderDefinition(resolver *storage.ConnectionResolver) scope.Definition {
	return scope.Definition{
		Name:         MultiSystemFailureItemReader,
		Kind:         scope.Step,
		Placeholders: []scope.Placeholder{scope.Param("inputFilePath", scope.String)},
		Build: func(ctx context.Context, v scope.Values) (any, error) {
			conn, err := defaultStorage(ctx, resolver)
			if err != nil {
				return nil, err
			}
			dir := v.String("inputFilePath")
			resources := make([]string, len(multiFailureResources))
			for i, name := range multiFailureResources {
				resources[i] = path.Join(dir, name)
			}
			delegate := newDelimitedFailureReader("systemFailureFileReader", conn, "")
			return multi.NewResourceReader[domain.SystemFailure](MultiSystemFailureItemReader, resources, delegate), nil
		},
	}
}

// NewSystemFailureStdoutItemWriter logs every failure.
func NewSystemFailureStdoutItemWriter() port.ItemWriter[domain.SystemFailure] {
	return item.NewLogItemWriter[domain.SystemFailure]("Processing system failure: ", nil)
}

// NewSystemFailureJob reads the fixed-width report named by inputFile and logs it.
func NewSystemFailureJob(jf *runner.JobFactory, sf *factory.StepFactory, reg *scope.Registry) port.Job {
	s := factory.ChunkSized(sf, "systemFailureStep", failureChunkSize,
		scope.StepScoped[port.ItemReader[domain.SystemFailure]](reg, DateTimeEditorSystemFailureItemReader),
		nil,
		scope.Instance(NewSystemFailureStdoutItemWriter()),
	)
	return jf.NewJob(SystemFailureJobName, s)
}

// NewMultiSystemFailureJob reads both failure reports under inputFilePath and logs them.
func NewMultiSystemFailureJob(jf *runner.JobFactory, sf *factory.StepFactory, reg *scope.Registry) port.Job {
	s := factory.ChunkSized(sf, "multiSystemFailureStep", failureChunkSize,
		scope.StepScoped[port.ItemReader[domain.SystemFailure]](reg, MultiSystemFailureItemReader),
		nil,
		scope.Instance(NewSystemFailureStdoutItemWriter()),
	)
	return jf.NewJob(MultiSystemFailureJobName, s)
}
