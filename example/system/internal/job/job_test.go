package job_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	"github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/local"
	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	usecase "github.com/kangwooc/spring-batch/pkg/batch/core/application/usecase"
	config "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
	coremetrics "github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/expression"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/factory"
	"github.com/kangwooc/spring-batch/pkg/batch/infrastructure/repository/inmemory"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
	batchtest "github.com/kangwooc/spring-batch/pkg/batch/test"

	"github.com/kangwooc/spring-batch/example/system/internal/domain"
	"github.com/kangwooc/spring-batch/example/system/internal/job"
)

type harness struct {
	launcher *usecase.SimpleJobLauncher
	registry *scope.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{}
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(config.NewConfig()),
		coremetrics.Module,
		expression.Module,
		scope.Module,
		storage.Module,
		local.Module,
		factory.Module,
		runner.Module,
		usecase.Module,
		inmemory.Module,
		job.Module,
		fx.Populate(&h.launcher, &h.registry),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)
	return h
}

func (h *harness) launch(t *testing.T, jobName string, args ...string) *model.JobExecution {
	t.Helper()
	params, err := model.ParseJobParameters(args)
	require.NoError(t, err)
	je, err := h.launcher.Launch(context.Background(), jobName, params)
	require.NoError(t, err)
	require.Equal(t, model.BatchStatusCompleted, je.Status)
	return je
}

func (h *harness) exitCode(t *testing.T, jobName string, args ...string) int {
	t.Helper()
	params, err := model.ParseJobParameters(args)
	require.NoError(t, err)
	return h.launcher.Run(context.Background(), jobName, params)
}

func stepExecution(t *testing.T, je *model.JobExecution, name string) *model.StepExecution {
	t.Helper()
	for _, se := range je.StepExecutions {
		if se.StepName == name {
			return se
		}
	}
	require.Failf(t, "step not executed", "no execution of step '%s'", name)
	return nil
}

func dataFile(t *testing.T, name string) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join("..", "..", "data", name))
	require.NoError(t, err)
	return p
}

func TestSystemFailureJob_ReadsFixedWidthReportWithHeader(t *testing.T) {
	h := newHarness(t)
	je := h.launch(t, job.SystemFailureJobName, "inputFile="+dataFile(t, "system-failures.txt"))

	se := stepExecution(t, je, "systemFailureStep")
	assert.Equal(t, 5, se.ReadCount)
	assert.Equal(t, 5, se.WriteCount)
}

func TestSystemFailureJob_WithoutInputFileFails(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, usecase.ExitCodeFailed, h.exitCode(t, job.SystemFailureJobName))
}

func TestMultiSystemFailureJob_ReadsCriticalThenNormalReport(t *testing.T) {
	h := newHarness(t)
	je := h.launch(t, job.MultiSystemFailureJobName, "inputFilePath="+filepath.Dir(dataFile(t, "system-failures.csv")))

	se := stepExecution(t, je, "multiSystemFailureStep")
	assert.Equal(t, 5, se.ReadCount)
	assert.Equal(t, 5, se.WriteCount)
}

func TestFixedSizeReader_ParsesEveryColumn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	params := batchtest.NewTestJobParameters("inputFile", dataFile(t, "system-failures-noheader.txt"))
	je := batchtest.NewTestJobExecution("fixedReadJob", params)
	se := batchtest.NewTestStepExecution(je, "fixedReadStep")

	provider := scope.StepScoped[port.ItemReader[domain.SystemFailure]](h.registry, job.FixedSizeFlatFileSystemFailureItemReader)
	reader, err := provider(ctx, je, se)
	require.NoError(t, err)
	require.NoError(t, reader.Open(ctx, se.ExecutionContext))
	defer reader.Close(ctx)

	first, err := reader.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ERR001", first.ErrorID)
	assert.Equal(t, "2024-01-15 10:30:45", first.ErrorDateTime.Format(domain.FailureDateTimeLayout))
	assert.Equal(t, "CRITICAL", first.Severity)
	assert.Equal(t, 1234, first.ProcessID)
	assert.Equal(t, "SYSTEM_CRASH", first.ErrorMessage)

	count := 1
	for {
		_, err := reader.Read(ctx)
		if errors.Is(err, port.ErrNoMoreItems) {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 5, count)
}

func TestSystemFailureArchiveJob_PartitionsBySeverity(t *testing.T) {
	h := newHarness(t)
	out := t.TempDir()
	h.launch(t, job.SystemFailureArchiveJobName, "inputFile="+dataFile(t, "system-failures.csv"), "outputDir="+out)

	for _, severity := range []string{"critical", "high", "medium", "low"} {
		parts, err := filepath.Glob(filepath.Join(out, "severity="+severity, "*.parquet"))
		require.NoError(t, err)
		assert.NotEmpty(t, parts, severity)
	}
}

func TestSystemFailureArchiveJob_RejectsUnknownCompression(t *testing.T) {
	h := newHarness(t)
	code := h.exitCode(t, job.SystemFailureArchiveJobName,
		"inputFile="+dataFile(t, "system-failures.csv"), "outputDir="+t.TempDir(), "compression=LZ4")
	assert.Equal(t, usecase.ExitCodeFailed, code)
}

func TestDeathNoteMultiWriteJob_SplitsIntoFramedFiles(t *testing.T) {
	h := newHarness(t)
	out := t.TempDir()
	h.launch(t, job.DeathNoteMultiWriteJobName, "outputDir="+out)

	first, err := os.ReadFile(filepath.Join(out, "death_note"+job.DeathNoteResourceSuffix(1)))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(first), "\n"), "\n")
	require.Len(t, lines, 12)
	assert.Contains(t, lines[0], "EXECUTION RECORD")
	assert.Contains(t, lines[1], "ID: KILL-001 | date: ")
	assert.Contains(t, lines[11], "EXECUTION COMPLETE")

	second, err := os.ReadFile(filepath.Join(out, "death_note"+job.DeathNoteResourceSuffix(2)))
	require.NoError(t, err)
	lines = strings.Split(strings.TrimRight(string(second), "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Contains(t, lines[1], "KILL-011")
	assert.Contains(t, lines[5], "KILL-015")
}

func TestZombieProcessCleanupJob_RepeatsUntilEveryZombieIsGone(t *testing.T) {
	h := newHarness(t)
	je := h.launch(t, job.ZombieProcessCleanupJobName)

	killed, ok := stepExecution(t, je, "zombieCleanupStep").ExecutionContext.GetInt(job.ZombiesKilledKey)
	require.True(t, ok)
	assert.Equal(t, job.DefaultZombieCount, killed)
}

func TestZombieProcessCleanupJob_NextInstanceRunsAgain(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	assert.Equal(t, usecase.ExitCodeCompleted, h.launcher.RunNextInstance(ctx, job.ZombieProcessCleanupJobName, model.NewJobParameters()))
	assert.Equal(t, usecase.ExitCodeCompleted, h.launcher.RunNextInstance(ctx, job.ZombieProcessCleanupJobName, model.NewJobParameters()))
}

func TestSystemTerminationSimulationJob_RunsFourSteps(t *testing.T) {
	h := newHarness(t)
	je := h.launch(t, job.SystemTerminationSimulationJobName)

	require.Len(t, je.StepExecutions, 4)
	for _, se := range je.StepExecutions {
		assert.Equal(t, model.BatchStatusCompleted, se.Status, se.StepName)
	}
	killed, _ := stepExecution(t, je, "defeatProcessStep").ExecutionContext.GetInt(job.ProcessesKilledKey)
	assert.Equal(t, job.TerminationTarget, killed)
}

var killLine = regexp.MustCompile(`Process \d+ terminated\.`)

func TestProcessTerminatorJob_TerminatesTargetCountProcesses(t *testing.T) {
	for _, tc := range []struct {
		targetCount string
		want        int
	}{
		{"3", 3},
		{"0", 0},
	} {
		t.Run("targetCount="+tc.targetCount, func(t *testing.T) {
			var logs bytes.Buffer
			logger.Configure(logger.Options{Level: "INFO", Format: "json", Output: &logs})
			t.Cleanup(func() { logger.Configure(logger.Options{Level: "INFO"}) })

			h := newHarness(t)
			je := h.launch(t, job.ProcessTerminatorJobName,
				"terminatorId=KILL-9", "targetCount="+tc.targetCount+",long", "executionDate=2024-01-01,date", "startTime=2024-01-01 12:00:00,datetime")

			se := stepExecution(t, je, "terminationStep")
			assert.Equal(t, model.BatchStatusCompleted, se.Status)
			terminated, ok := se.ExecutionContext.GetInt(job.TerminatedCountKey)
			require.True(t, ok)
			assert.Equal(t, tc.want, terminated)
			assert.Len(t, killLine.FindAllString(logs.String(), -1), tc.want, "one kill line per target")
		})
	}
}

func TestProcessTerminatorJob_MissingParameterFails(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, usecase.ExitCodeFailed, h.exitCode(t, job.ProcessTerminatorJobName, "terminatorId=KILL-9"))
}

func TestEnumTerminatorJob_RewardsByDifficulty(t *testing.T) {
	h := newHarness(t)
	je := h.launch(t, job.EnumTerminatorJobName, "questDifficulty=HARD")

	reward, _ := stepExecution(t, je, "enumTerminationStep").ExecutionContext.GetInt(job.RewardKey)
	assert.Equal(t, 3*domain.BaseReward, reward)

	assert.Equal(t, usecase.ExitCodeFailed, h.exitCode(t, job.EnumTerminatorJobName, "questDifficulty=NIGHTMARE"))
}

func TestPojoTerminatorJob_BindsParameterStruct(t *testing.T) {
	h := newHarness(t)
	je := h.launch(t, job.PojoTerminatorJobName,
		"missionName=Operation Black", "securityLevel=3,long", "operationCommander=KILL-9")

	minutes, _ := stepExecution(t, je, "pojoTerminationStep").ExecutionContext.GetInt(job.InfiltrationMinutesKey)
	assert.Equal(t, 4*domain.BaseInfiltrationMinutes, minutes)
}

func TestPojoJsonTerminatorJob_AcceptsJSONNotation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	params, err := model.ParseJSONJobParameters([]string{
		`infiltrationTargets={"value":"192.168.1.100, 192.168.1.101","type":"string"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, usecase.ExitCodeCompleted, h.launcher.Run(ctx, job.PojoJsonTerminatorJobName, params))

	empty, err := model.ParseJSONJobParameters([]string{`infiltrationTargets={"value":" ","type":"string"}`})
	require.NoError(t, err)
	assert.Equal(t, usecase.ExitCodeFailed, h.launcher.Run(ctx, job.PojoJsonTerminatorJobName, empty))
}

func TestSystemDestructionJob_PassesStateThroughJobContext(t *testing.T) {
	h := newHarness(t)
	je := h.launch(t, job.SystemDestructionJobName, "system.target=payment-gateway", "system.destruction.level=3,long")

	state, ok := je.ExecutionContext.GetString(job.PreviousSystemStateKey)
	require.True(t, ok)
	assert.Equal(t, "payment-gateway destroyed at level 3", state)
	assert.Len(t, je.StepExecutions, 3)
}

func TestSystemDestructionJob_MissingLevelFails(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, usecase.ExitCodeFailed, h.exitCode(t, job.SystemDestructionJobName, "system.target=payment-gateway"))
}
