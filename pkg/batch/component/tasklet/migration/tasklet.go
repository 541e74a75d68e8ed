package migration

import (
	"context"
	"database/sql"
	"io/fs"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// SchemaVersionKey is the step ExecutionContext key holding the resulting schema version.
const SchemaVersionKey = "migration.version"

// MigrationTasklet applies migrations in one invocation.
type MigrationTasklet struct {
	migrator *Migrator
	fsys     fs.FS
	dir      string
	command  Command
}

var _ port.Tasklet = (*MigrationTasklet)(nil)

// NewMigrationTasklet runs migrations from dir in fsys. Migrations live outside
// the chunk transaction, so the step should use the resourceless transaction manager.
func NewMigrationTasklet(db *sql.DB, dbType, table string, fsys fs.FS, dir string, command Command) *MigrationTasklet {
	if command == "" {
		command = CommandUp
	}
	return &MigrationTasklet{migrator: NewMigrator(db, dbType, table), fsys: fsys, dir: dir, command: command}
}

// NewMetadataMigrationTasklet applies the embedded metadata schema of dbType.
func NewMetadataMigrationTasklet(db *sql.DB, dbType string) (*MigrationTasklet, error) {
	fsys, dir, err := MetadataSchema(dbType)
	if err != nil {
		return nil, err
	}
	return NewMigrationTasklet(db, dbType, MetadataMigrationsTable, fsys, dir, CommandUp), nil
}

func (t *MigrationTasklet) Execute(ctx context.Context, se *model.StepExecution) (port.RepeatStatus, error) {
	version, err := t.migrator.Run(ctx, t.fsys, t.dir, t.command)
	if err != nil {
		return port.Finished, exception.NewBatchError("migration_tasklet", "migration failed", err, false, false)
	}
	se.ExecutionContext.Put(SchemaVersionKey, int(version))
	logger.Infof("Step '%s': schema at version %d.", se.StepName, version)
	return port.Finished, nil
}
