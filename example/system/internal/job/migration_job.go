package job

import (
	"gorm.io/gorm"

	"github.com/kangwooc/spring-batch/pkg/batch/component/tasklet/migration"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	config "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/incrementer"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/factory"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

const MetadataMigrationJobName = "metadataMigrationJob"

// NewMetadataMigrationJob applies the embedded metadata schema to the repository
// database. It carries a run.id incrementer so it can be run again with --next.
func NewMetadataMigrationJob(jf *runner.JobFactory, sf *factory.StepFactory, cfg *config.Config, db *gorm.DB) (port.Job, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, exception.NewBatchError(MetadataMigrationJobName, "failed to access the metadata database", err, false, false)
	}
	tasklet, err := migration.NewMetadataMigrationTasklet(sqlDB, cfg.Infrastructure.Repository.Database.Type)
	if err != nil {
		return nil, exception.NewBatchError(MetadataMigrationJobName, "no metadata schema", err, false, false)
	}
	s := sf.TaskletWithTransactionManager("metadataMigrationStep", tx.NewResourcelessTransactionManager(),
		scope.Instance[port.Tasklet](tasklet))
	return jf.NewJob(MetadataMigrationJobName, s).WithIncrementer(incrementer.NewRunIDIncrementer("")), nil
}
