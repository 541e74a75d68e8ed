// Package migration applies SQL schema migrations with golang-migrate. It embeds
// the metadata schema of the SQL job repository, one directory per dialect.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// MetadataMigrationsTable tracks the applied versions of the metadata schema.
const MetadataMigrationsTable = "batch_schema_migrations"

//go:embed schema
var schemaFS embed.FS

// MetadataSchema returns the embedded metadata migrations for dbType.
func MetadataSchema(dbType string) (fs.FS, string, error) {
	dir := "schema/" + dbType
	if _, err := fs.Stat(schemaFS, dir); err != nil {
		return nil, "", fmt.Errorf("no metadata schema for database type '%s'", dbType)
	}
	return schemaFS, dir, nil
}

// Command is a migration direction.
type Command string

const (
	CommandUp   Command = "up"
	CommandDown Command = "down"
)

// Migrator runs migrations from an fs.FS against one database.
type Migrator struct {
	db     *sql.DB
	dbType string
	table  string
}

// NewMigrator returns a Migrator recording versions in table. An empty table
// means MetadataMigrationsTable.
func NewMigrator(db *sql.DB, dbType, table string) *Migrator {
	if table == "" {
		table = MetadataMigrationsTable
	}
	return &Migrator{db: db, dbType: dbType, table: table}
}

func (m *Migrator) driver() (database.Driver, error) {
	switch m.dbType {
	case "postgres":
		return postgres.WithInstance(m.db, &postgres.Config{MigrationsTable: m.table, MultiStatementEnabled: true})
	case "mysql":
		return mysql.WithInstance(m.db, &mysql.Config{MigrationsTable: m.table})
	case "sqlite":
		return sqlite.WithInstance(m.db, &sqlite.Config{MigrationsTable: m.table})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}

func (m *Migrator) instance(fsys fs.FS, dir string) (*migrate.Migrate, error) {
	source, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations in '%s': %w", dir, err)
	}
	driver, err := m.driver()
	if err != nil {
		return nil, err
	}
	mi, err := migrate.NewWithInstance("iofs", source, m.dbType, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	mi.Log = migrateLogger{}
	return mi, nil
}

// Run applies cmd and returns the schema version afterwards. Version 0 means no
// migration applied.
//
// The migrate instance is not closed: closing it would close the shared *sql.DB.
func (m *Migrator) Run(ctx context.Context, fsys fs.FS, dir string, cmd Command) (uint, error) {
	mi, err := m.instance(fsys, dir)
	if err != nil {
		return 0, err
	}
	stop := context.AfterFunc(ctx, func() { mi.GracefulStop <- true })
	defer stop()

	logger.Infof("Running migration '%s' from '%s' (table %s).", cmd, dir, m.table)
	switch cmd {
	case CommandUp:
		err = mi.Up()
	case CommandDown:
		err = mi.Down()
	default:
		return 0, fmt.Errorf("unsupported migration command: %s", cmd)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migration '%s' failed (DB: %s, path: %s): %w", cmd, m.dbType, dir, err)
	}

	version, dirty, err := mi.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	case dirty:
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	logger.Infof("Migration '%s' finished at schema version %d.", cmd, version)
	return version, nil
}

// MigrateMetadata applies the embedded metadata schema.
func MigrateMetadata(ctx context.Context, db *sql.DB, dbType string) (uint, error) {
	fsys, dir, err := MetadataSchema(dbType)
	if err != nil {
		return 0, err
	}
	return NewMigrator(db, dbType, MetadataMigrationsTable).Run(ctx, fsys, dir, CommandUp)
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) { logger.Debugf("[migrate] "+format, v...) }
func (migrateLogger) Verbose() bool                  { return false }
