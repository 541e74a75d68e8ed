package gorm

import (
	"context"

	"go.uber.org/fx"
	"gorm.io/gorm"

	config "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// NewDB opens the metadata database configured under infrastructure.repository.database
// and closes it when the application stops.
func NewDB(lc fx.Lifecycle, cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(cfg.Infrastructure.Repository.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			logger.Debugf("Closing %s database connection.", cfg.Infrastructure.Repository.Database.Type)
			return sqlDB.Close()
		},
	})
	return db, nil
}

// Module provides *gorm.DB and *GormTransactionManager, also as tx.TransactionManager. A dialect subpackage
// (mysql, postgres or sqlite) must be imported for the configured type.
var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Provide(
		fx.Annotate(
			NewGormTransactionManager,
			fx.As(fx.Self()),
			fx.As(new(tx.TransactionManager)),
		),
	),
)
