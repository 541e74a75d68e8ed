// Package gorm opens gorm connections from a DatabaseConfig and provides the
// gorm-backed TransactionManager.
package gorm

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	dbconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/config"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// DialectorFactory creates a gorm.Dialector from a DatabaseConfig.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorMu       sync.RWMutex
	dialectorRegistry = make(map[string]DialectorFactory)
)

// RegisterDialector registers the factory for a database type. The dialect
// subpackages call it from init.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMu.Lock()
	defer dialectorMu.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory returns the factory registered for dbType.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMu.RLock()
	defer dialectorMu.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		known := make([]string, 0, len(dialectorRegistry))
		for name := range dialectorRegistry {
			known = append(known, name)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("no dialector registered for database type '%s' (registered: %v)", dbType, known)
	}
	return factory, nil
}

// Open connects to the database described by cfg and applies its pool settings.
func Open(cfg dbconfig.DatabaseConfig) (*gorm.DB, error) {
	factory, err := GetDialectorFactory(cfg.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", cfg.Type, err)
	}
	return OpenDialector(dialector, cfg)
}

// OpenDialector opens an already built dialector. Tests use it with sqlmock.
func OpenDialector(dialector gorm.Dialector, cfg dbconfig.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(cfg.LogLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection (%s): %w", cfg.Type, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}
	logger.Infof("Opened %s database connection.", cfg.Type)
	return db, nil
}
