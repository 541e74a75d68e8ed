package gorm_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"

	dbconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/config"
	gormadapter "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm"
	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
)

func TestGormTransactionManager_CommitAndRollback(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db, err := gormadapter.OpenDialector(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), dbconfig.DatabaseConfig{Type: "mysql"})
	require.NoError(t, err)
	m := gormadapter.NewGormTransactionManager(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE counters").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	t1, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, gormadapter.Session(tx.WithTx(ctx, t1), db).Exec("UPDATE counters SET n = n + 1").Error)
	require.NoError(t, m.Commit(t1))
	assert.True(t, t1.Done())
	assert.ErrorIs(t, m.Commit(t1), tx.ErrTxDone)

	mock.ExpectBegin()
	mock.ExpectRollback()
	t2, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Rollback(t2))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTransactionManager_RejectsForeignTx(t *testing.T) {
	m := gormadapter.NewGormTransactionManager(nil)
	other, err := tx.NewResourcelessTransactionManager().Begin(context.Background())
	require.NoError(t, err)
	assert.Error(t, m.Commit(other))
	assert.Error(t, m.Rollback(other))
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := gormadapter.Open(dbconfig.DatabaseConfig{Type: "oracle"})
	assert.ErrorContains(t, err, "no dialector registered")
}
