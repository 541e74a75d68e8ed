package job

import (
	"context"
	"fmt"
	"path"
	"time"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	"github.com/kangwooc/spring-batch/pkg/batch/component/item"
	"github.com/kangwooc/spring-batch/pkg/batch/component/item/file"
	"github.com/kangwooc/spring-batch/pkg/batch/component/item/multi"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/incrementer"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/factory"

	"github.com/kangwooc/spring-batch/example/system/internal/domain"
)

const (
	DeathNoteMultiWriteJobName = "deathNoteMultiWriteJob"
	MultiResourceItemWriter    = "multiResourceItemWriter"

	deathNoteCount            = 15
	deathNotesPerResource     = 10
	deathNoteChunkSize        = 10
	deathNoteHeader           = "================= EXECUTION RECORD ================="
	deathNoteFooter           = "================= EXECUTION COMPLETE =================="
	deathNoteFormat           = "ID: %s | date: %s | victim: %s | cause: %s"
	deathNoteResourceBaseName = "death_note"
)

var deathNoteFieldNames = []string{"victimId", "executionDate", "victimName", "causeOfDeath"}

// DeathNoteResourceSuffix names the index-th death note file, "_001.txt" first.
func DeathNoteResourceSuffix(index int) string { return fmt.Sprintf("_%03d.txt", index) }

// NewMultiResourceItemWriterDefinition splits death notes into files of at most ten
// lines under outputDir, each framed by a header and a footer line.
func NewMultiResourceItemWriterDefinition(resolver *storage.ConnectionResolver) scope.Definition {
	return scope.Definition{
		Name:         MultiResourceItemWriter,
		Kind:         scope.Step,
		Placeholders: []scope.Placeholder{scope.Param("outputDir", scope.String)},
		Build: func(ctx context.Context, v scope.Values) (any, error) {
			conn, err := defaultStorage(ctx, resolver)
			if err != nil {
				return nil, err
			}
			delegate := file.NewFlatFileItemWriter[domain.DeathNote]("deathNoteMultiWriter", conn, "",
				file.NewFormattedLineAggregator[domain.DeathNote](deathNoteFormat, deathNoteFieldNames...),
				file.WithHeader(file.StaticLines(deathNoteHeader)),
				file.WithFooter(file.StaticLines(deathNoteFooter)),
			)
			base := path.Join(v.String("outputDir"), deathNoteResourceBaseName)
			return multi.NewResourceWriter[domain.DeathNote]("multiDeathNoteWriter", base,
				DeathNoteResourceSuffix, deathNotesPerResource, delegate), nil
		},
	}
}

// NewDeathNoteMultiWriteJob writes fifteen death notes, scheduled from tomorrow on.
func NewDeathNoteMultiWriteJob(jf *runner.JobFactory, sf *factory.StepFactory, reg *scope.Registry) port.Job {
	// A fresh reader per execution dates the notes from the day the step runs.
	var reader scope.Provider[port.ItemReader[domain.DeathNote]] = func(context.Context, *model.JobExecution, *model.StepExecution) (port.ItemReader[domain.DeathNote], error) {
		return item.NewListItemReader("deathNoteMultiListReader", domain.NewDeathNotes(deathNoteCount, time.Now())), nil
	}
	s := factory.ChunkSized(sf, "deathNoteMultiWriteStep", deathNoteChunkSize,
		reader,
		nil,
		scope.StepScoped[port.ItemWriter[domain.DeathNote]](reg, MultiResourceItemWriter),
	)
	return jf.NewJob(DeathNoteMultiWriteJobName, s).WithIncrementer(incrementer.NewRunIDIncrementer(""))
}
