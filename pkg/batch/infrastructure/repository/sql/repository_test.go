package sql_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"

	dbconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/config"
	gormadapter "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
	sqlrepo "github.com/kangwooc/spring-batch/pkg/batch/infrastructure/repository/sql"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

type fixture struct {
	repo *sqlrepo.GormJobRepository
	txm  *gormadapter.GormTransactionManager
	mock sqlmock.Sqlmock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gormadapter.OpenDialector(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), dbconfig.DatabaseConfig{Type: "mysql"})
	require.NoError(t, err)
	return &fixture{repo: sqlrepo.NewGormJobRepository(db), txm: gormadapter.NewGormTransactionManager(db), mock: mock}
}

var executionColumns = []string{
	"id", "job_instance_id", "job_name", "parameters", "status", "exit_status", "failures",
	"start_time", "end_time", "create_time", "last_updated", "version", "restart_count",
	"current_step_name", "execution_context",
}

var stepColumns = []string{
	"id", "job_execution_id", "step_name", "status", "exit_status", "failures", "start_time",
	"end_time", "last_updated", "version", "read_count", "write_count", "filter_count",
	"commit_count", "rollback_count", "read_skip_count", "process_skip_count",
	"write_skip_count", "execution_context",
}

func jsonParams(t *testing.T, p model.JobParameters) string {
	t.Helper()
	v, err := p.Value()
	require.NoError(t, err)
	return v.(string)
}

func TestSaveJobInstance_Inserts(t *testing.T) {
	f := newFixture(t)
	ji := model.NewJobInstance("fixedLengthImportJob", model.NewJobParametersBuilder().AddString("run", "1").ToJobParameters())

	f.mock.ExpectExec("INSERT INTO `batch_job_instance`").
		WithArgs(ji.ID, ji.JobName, ji.ParametersHash, sqlmock.AnyArg(), sqlmock.AnyArg(), 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, f.repo.SaveJobInstance(context.Background(), ji))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestFindJobInstanceByJobNameAndParameters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	params := model.NewJobParametersBuilder().AddString("run", "1").ToJobParameters()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	f.mock.ExpectQuery("SELECT \\* FROM `batch_job_instance` WHERE job_name = \\? AND parameters_hash = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_name", "parameters_hash", "parameters", "create_time", "version"}).
			AddRow("ji-1", "fixedLengthImportJob", params.Hash(), jsonParams(t, params), created, 0))

	ji, err := f.repo.FindJobInstanceByJobNameAndParameters(ctx, "fixedLengthImportJob", params)
	require.NoError(t, err)
	assert.Equal(t, "ji-1", ji.ID)
	assert.True(t, ji.Parameters.Equal(params))
	assert.Equal(t, created, ji.CreateTime)

	f.mock.ExpectQuery("SELECT \\* FROM `batch_job_instance`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = f.repo.FindJobInstanceByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrJobInstanceNotFound)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGetJobNames(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("SELECT DISTINCT `job_name` FROM `batch_job_instance` ORDER BY job_name").
		WillReturnRows(sqlmock.NewRows([]string{"job_name"}).AddRow("a").AddRow("b"))

	names, err := f.repo.GetJobNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestUpdateJobExecution_IncrementsVersion(t *testing.T) {
	f := newFixture(t)
	je := &model.JobExecution{ID: "je-1", Status: model.BatchStatusCompleted, Version: 2, ExecutionContext: model.NewExecutionContext()}

	f.mock.ExpectExec("UPDATE `batch_job_execution` SET .* WHERE id = \\? AND version = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, f.repo.UpdateJobExecution(context.Background(), je))
	assert.Equal(t, 3, je.Version)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateJobExecution_VersionConflict(t *testing.T) {
	f := newFixture(t)
	je := &model.JobExecution{ID: "je-1", Version: 2}

	f.mock.ExpectExec("UPDATE `batch_job_execution`").WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectQuery("SELECT count\\(\\*\\) FROM `batch_job_execution` WHERE id = \\?").
		WithArgs("je-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := f.repo.UpdateJobExecution(context.Background(), je)
	require.Error(t, err)
	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.Equal(t, 2, je.Version)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateStepExecution_Missing(t *testing.T) {
	f := newFixture(t)
	se := &model.StepExecution{ID: "se-9"}

	f.mock.ExpectExec("UPDATE `batch_step_execution`").WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectQuery("SELECT count\\(\\*\\) FROM `batch_step_execution`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := f.repo.UpdateStepExecution(context.Background(), se)
	assert.ErrorIs(t, err, repository.ErrStepExecutionNotFound)
	assert.False(t, exception.IsOptimisticLockingFailure(err))
}

func TestFindJobExecutionByID_LoadsSteps(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Minute)
	params := model.NewJobParameters()

	f.mock.ExpectQuery("SELECT \\* FROM `batch_job_execution` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(executionColumns).AddRow(
			"je-1", "ji-1", "dateFormatJob", jsonParams(t, params), "FAILED", "FAILED", `["boom"]`,
			start, end, start, end, 3, 1, "dateFormatStep", `{"step":"dateFormatStep"}`))
	f.mock.ExpectQuery("SELECT \\* FROM `batch_step_execution` WHERE job_execution_id = \\? ORDER BY start_time").
		WithArgs("je-1").
		WillReturnRows(sqlmock.NewRows(stepColumns).AddRow(
			"se-1", "je-1", "dateFormatStep", "FAILED", "FAILED", `["boom"]`, start,
			nil, end, 4, 10, 8, 1, 2, 1, 0, 1, 0, `{"reader.read.count":10}`))

	je, err := f.repo.FindJobExecutionByID(context.Background(), "je-1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, model.FailureList{"boom"}, je.Failures)
	require.NotNil(t, je.EndTime)
	assert.Equal(t, end, *je.EndTime)
	assert.Equal(t, 1, je.RestartCount)

	require.Len(t, je.StepExecutions, 1)
	se := je.StepExecutions[0]
	assert.Same(t, je, se.JobExecution)
	assert.Nil(t, se.EndTime)
	assert.Equal(t, 10, se.ReadCount)
	assert.Equal(t, 1, se.ProcessSkipCount)
	count, ok := se.ExecutionContext.GetInt("reader.read.count")
	assert.True(t, ok)
	assert.Equal(t, 10, count)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestFindLastStepExecution_JoinsJobExecution(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("SELECT batch_step_execution\\.\\* FROM `batch_step_execution` JOIN batch_job_execution .* ORDER BY batch_step_execution.start_time DESC").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := f.repo.FindLastStepExecution(context.Background(), "ji-1", "dateFormatStep")
	assert.ErrorIs(t, err, repository.ErrStepExecutionNotFound)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSaveCheckpointData_UpsertsInsideTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ec := model.NewExecutionContext()
	ec.Put("reader.read.count", 5)

	f.mock.ExpectBegin()
	f.mock.ExpectExec("INSERT INTO `batch_checkpoint_data` .* ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	t1, err := f.txm.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, f.repo.SaveCheckpointData(tx.WithTx(ctx, t1), &model.CheckpointData{
		StepExecutionID:  "se-1",
		ExecutionContext: ec,
		LastUpdated:      time.Now(),
	}))
	require.NoError(t, f.txm.Commit(t1))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestFindCheckpointData_NotFound(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("SELECT \\* FROM `batch_checkpoint_data` WHERE step_execution_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"step_execution_id"}))

	_, err := f.repo.FindCheckpointData(context.Background(), "se-1")
	assert.ErrorIs(t, err, repository.ErrCheckpointDataNotFound)
}
