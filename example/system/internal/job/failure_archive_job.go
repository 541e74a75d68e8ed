package job

import (
	"context"
	"strings"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	"github.com/kangwooc/spring-batch/pkg/batch/component/item/parquet"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/factory"

	"github.com/kangwooc/spring-batch/example/system/internal/domain"
)

const (
	SystemFailureArchiveJobName = "systemFailureArchiveJob"
	SystemFailureParquetWriter  = "systemFailureParquetWriter"
)

// NewSystemFailureParquetWriterDefinition writes failure records as Parquet files
// under outputDir, one directory per severity.
func NewSystemFailureParquetWriterDefinition(resolver *storage.ConnectionResolver) scope.Definition {
	return scope.Definition{
		Name: SystemFailureParquetWriter,
		Kind: scope.Step,
		Placeholders: []scope.Placeholder{
			scope.Param("outputDir", scope.String),
			scope.Param("compression", scope.String).OneOf("SNAPPY", "GZIP", "NONE").Optional("SNAPPY"),
		},
		Build: func(ctx context.Context, v scope.Values) (any, error) {
			conn, err := defaultStorage(ctx, resolver)
			if err != nil {
				return nil, err
			}
			cfg := parquet.Config{BaseDir: v.String("outputDir"), Compression: v.Enum("compression")}
			return parquet.NewItemWriter(SystemFailureParquetWriter, conn, cfg, func(r domain.FailureRecord) (string, error) {
				return "severity=" + strings.ToLower(r.Severity), nil
			})
		},
	}
}

func toFailureRecord(_ context.Context, f domain.SystemFailure) (domain.FailureRecord, bool, error) {
	return domain.NewFailureRecord(f), true, nil
}

// NewSystemFailureArchiveJob converts the comma separated report named by inputFile to Parquet.
func NewSystemFailureArchiveJob(jf *runner.JobFactory, sf *factory.StepFactory, reg *scope.Registry) port.Job {
	s := factory.ChunkSized(sf, "systemFailureArchiveStep", failureChunkSize,
		scope.StepScoped[port.ItemReader[domain.SystemFailure]](reg, SystemFailureItemReader),
		scope.Instance[port.ItemProcessor[domain.SystemFailure, domain.FailureRecord]](
			port.ItemProcessorFunc[domain.SystemFailure, domain.FailureRecord](toFailureRecord)),
		scope.StepScoped[port.ItemWriter[domain.FailureRecord]](reg, SystemFailureParquetWriter),
	)
	return jf.NewJob(SystemFailureArchiveJobName, s)
}
