package sql

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"gorm.io/gorm"

	gormadapter "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm"
	"github.com/kangwooc/spring-batch/pkg/batch/component/tasklet/migration"
	config "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// NewJobRepository provides the repository and, when infrastructure.repository.auto_migrate
// is set, applies the embedded metadata schema as the application starts.
func NewJobRepository(lc fx.Lifecycle, cfg *config.Config, db *gorm.DB) *GormJobRepository {
	repoCfg := cfg.Infrastructure.Repository
	if repoCfg.AutoMigrate {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				version, err := migration.MigrateMetadata(ctx, sqlDB, repoCfg.Database.Type)
				if err != nil {
					return fmt.Errorf("failed to migrate batch metadata schema: %w", err)
				}
				logger.Infof("Batch metadata schema is at version %d.", version)
				return nil
			},
		})
	}
	return NewGormJobRepository(db)
}

// Module provides GormJobRepository as repository.JobRepository over the
// metadata database, together with everything gormadapter.Module provides.
var Module = fx.Options(
	gormadapter.Module,
	fx.Provide(
		fx.Annotate(
			NewJobRepository,
			fx.As(new(repository.JobRepository)),
		),
	),
)
