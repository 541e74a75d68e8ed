package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/config"
	gormadapter "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm"
	"github.com/kangwooc/spring-batch/pkg/batch/component/item/database"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
)

type failureRow struct {
	ErrorID  string `gorm:"column:error_id;primaryKey"`
	Severity string `gorm:"column:severity"`
}

func (failureRow) TableName() string { return "system_failure" }

func newDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gormadapter.OpenDialector(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), dbconfig.DatabaseConfig{Type: "mysql"})
	require.NoError(t, err)
	return db, mock
}

func critical(db *gorm.DB) *gorm.DB {
	return db.Where("severity = ?", "CRITICAL").Order("error_id")
}

func rows(ids ...string) *sqlmock.Rows {
	r := sqlmock.NewRows([]string{"error_id", "severity"})
	for _, id := range ids {
		r.AddRow(id, "CRITICAL")
	}
	return r
}

func TestPagingItemReader_ReadsUntilShortPage(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()
	mock.ExpectQuery("SELECT \\* FROM `system_failure` WHERE severity = \\? ORDER BY error_id LIMIT").WillReturnRows(rows("ERR001", "ERR002"))
	mock.ExpectQuery("SELECT \\* FROM `system_failure` WHERE severity = \\? ORDER BY error_id LIMIT .* OFFSET").WillReturnRows(rows("ERR005"))

	r := database.NewPagingItemReader[failureRow]("criticalReader", db, 2, critical)
	require.NoError(t, r.Open(ctx, model.NewExecutionContext()))

	var ids []string
	for {
		row, err := r.Read(ctx)
		if errors.Is(err, port.ErrNoMoreItems) {
			break
		}
		require.NoError(t, err)
		ids = append(ids, row.ErrorID)
	}
	assert.Equal(t, []string{"ERR001", "ERR002", "ERR005"}, ids)

	ec, err := r.GetExecutionContext(ctx)
	require.NoError(t, err)
	n, _ := ec.GetInt("criticalReader." + database.ReadCountKey)
	assert.Equal(t, 3, n)
	require.NoError(t, r.Close(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPagingItemReader_ResumesAtCheckpoint(t *testing.T) {
	db, mock := newDB(t)
	ctx := context.Background()
	mock.ExpectQuery("SELECT \\* FROM `system_failure` .* OFFSET").WillReturnRows(rows("ERR005"))

	r := database.NewPagingItemReader[failureRow]("criticalReader", db, 2, critical)
	ec := model.NewExecutionContext()
	ec.Put("criticalReader."+database.ReadCountKey, 2)
	require.NoError(t, r.Open(ctx, ec))

	row, err := r.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ERR005", row.ErrorID)
	_, err = r.Read(ctx)
	assert.ErrorIs(t, err, port.ErrNoMoreItems)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemWriter_UpsertsInBatches(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectExec("INSERT INTO `system_failure` .* ON DUPLICATE KEY UPDATE `severity`").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO `system_failure` .* ON DUPLICATE KEY UPDATE `severity`").WillReturnResult(sqlmock.NewResult(0, 1))

	w := database.NewItemWriter[failureRow]("failureWriter", db,
		database.WithBatchSize(2), database.WithUpsert([]string{"error_id"}, "severity"))
	err := w.Write(context.Background(), []failureRow{{"ERR001", "CRITICAL"}, {"ERR002", "HIGH"}, {"ERR003", "LOW"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemWriter_JoinsChunkTransaction(t *testing.T) {
	db, mock := newDB(t)
	txm := gormadapter.NewGormTransactionManager(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `system_failure`").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	chunkTx, err := txm.Begin(context.Background())
	require.NoError(t, err)
	ctx := tx.WithTx(context.Background(), chunkTx)

	w := database.NewItemWriter[failureRow]("failureWriter", db)
	err = w.Write(ctx, []failureRow{{"ERR001", "CRITICAL"}})
	require.Error(t, err)
	require.NoError(t, txm.Rollback(chunkTx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemWriter_EmptyChunkIsNoOp(t *testing.T) {
	db, mock := newDB(t)
	w := database.NewItemWriter[failureRow]("failureWriter", db)
	require.NoError(t, w.Write(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
