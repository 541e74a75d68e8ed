// Package sqlite registers the SQLite dialector.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/config"
	gormadapter "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm"
)

func init() {
	gormadapter.RegisterDialector("sqlite", Dialector)
}

// Dialector opens the database file named by cfg.Database. ":memory:" is accepted.
func Dialector(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
	if cfg.Database == "" {
		return nil, errors.New("SQLite database path cannot be empty")
	}
	dsn := cfg.Database
	if cfg.Params != "" {
		dsn += "?" + cfg.Params
	}
	return sqlite.Open(dsn), nil
}
