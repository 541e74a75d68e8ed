package job

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kangwooc/spring-batch/pkg/batch/component/item"
	"github.com/kangwooc/spring-batch/pkg/batch/component/item/database"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/factory"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"

	"github.com/kangwooc/spring-batch/example/system/internal/domain"
)

const SystemFailureLoadJobName = "systemFailureLoadJob"

// criticalPageSize is the page size of criticalFailureReportStep.
const criticalPageSize = 2

var criticalSeverities = []string{"CRITICAL", "FATAL"}

func toFailureRow(_ context.Context, f domain.SystemFailure) (domain.FailureRow, bool, error) {
	return domain.NewFailureRow(f), true, nil
}

func criticalFailures(db *gorm.DB) *gorm.DB {
	return db.Where("severity IN ?", criticalSeverities).Order("error_id")
}

// NewSystemFailureLoadJob loads the comma separated report named by inputFile into
// the system_failure table of the repository database, then reports its critical rows.
// Reloading a report updates the rows it already stored.
func NewSystemFailureLoadJob(jf *runner.JobFactory, sf *factory.StepFactory, reg *scope.Registry, db *gorm.DB) port.Job {
	// DDL runs outside the chunk transaction.
	table := sf.TaskletWithTransactionManager("failureTableStep", tx.NewResourcelessTransactionManager(),
		scope.Instance(finished(func(ctx context.Context, _ *model.StepExecution) error {
			return db.WithContext(ctx).AutoMigrate(&domain.FailureRow{})
		})))

	load := factory.ChunkSized(sf, "failureLoadStep", failureChunkSize,
		scope.StepScoped[port.ItemReader[domain.SystemFailure]](reg, SystemFailureItemReader),
		scope.Instance[port.ItemProcessor[domain.SystemFailure, domain.FailureRow]](
			port.ItemProcessorFunc[domain.SystemFailure, domain.FailureRow](toFailureRow)),
		scope.Instance[port.ItemWriter[domain.FailureRow]](database.NewItemWriter[domain.FailureRow]("systemFailureTableWriter", db,
			database.WithBatchSize(failureChunkSize),
			database.WithUpsert([]string{"error_id"}, "error_date_time", "severity", "process_id", "error_message"))),
	)

	var critical scope.Provider[port.ItemReader[domain.FailureRow]] = func(context.Context, *model.JobExecution, *model.StepExecution) (port.ItemReader[domain.FailureRow], error) {
		return database.NewPagingItemReader[domain.FailureRow]("criticalFailureReader", db, criticalPageSize, criticalFailures), nil
	}
	report := factory.ChunkSized(sf, "criticalFailureReportStep", failureChunkSize,
		critical,
		nil,
		scope.Instance[port.ItemWriter[domain.FailureRow]](item.NewLogItemWriter("Critical failure: ", func(r domain.FailureRow) string {
			return fmt.Sprintf("%s pid=%d %s", r.ErrorID, r.ProcessID, r.ErrorMessage)
		})),
	)
	logger.Debugf("Job '%s' stores failures in table '%s'.", SystemFailureLoadJobName, domain.FailureRow{}.TableName())
	return jf.NewJob(SystemFailureLoadJobName, table, load, report)
}
