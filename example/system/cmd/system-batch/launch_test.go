package main

import (
	"context"
	"flag"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	usecase "github.com/kangwooc/spring-batch/pkg/batch/core/application/usecase"
	config "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
	batchlistener "github.com/kangwooc/spring-batch/pkg/batch/listener"
)

func TestParseLaunchRequest_JobNameAndTypedParameters(t *testing.T) {
	req, err := ParseLaunchRequest([]string{"processTerminatorJob", "terminatorId=KILL-9", "targetCount=5,long"}, "", io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "processTerminatorJob", req.JobName)
	assert.False(t, req.Next)
	count, ok := req.Params.GetLong("targetCount")
	require.True(t, ok)
	assert.Equal(t, int64(5), count)
}

func TestParseLaunchRequest_FallsBackToConfiguredJob(t *testing.T) {
	req, err := ParseLaunchRequest([]string{"--next", "run.id=3,long"}, "zombieProcessCleanupJob", io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "zombieProcessCleanupJob", req.JobName)
	assert.True(t, req.Next)
	assert.Equal(t, 1, req.Params.Len())
}

func TestParseLaunchRequest_JSONNotation(t *testing.T) {
	req, err := ParseLaunchRequest([]string{"--json", "pojoJsonTerminatorJob",
		`infiltrationTargets={"value":"10.0.0.1,10.0.0.2","type":"string"}`}, "", io.Discard)
	require.NoError(t, err)

	targets, ok := req.Params.GetString("infiltrationTargets")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1,10.0.0.2", targets)
}

func TestParseLaunchRequest_Errors(t *testing.T) {
	_, err := ParseLaunchRequest(nil, "", io.Discard)
	assert.Error(t, err, "no job name anywhere")

	_, err = ParseLaunchRequest([]string{"enumTerminatorJob", "=HARD"}, "", io.Discard)
	assert.Error(t, err)

	_, err = ParseLaunchRequest([]string{"-h"}, "", io.Discard)
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestEmbeddedConfiguration_IsValid(t *testing.T) {
	cfg, err := config.LoadConfig("", embeddedConfig)
	require.NoError(t, err)
	assert.Equal(t, config.RepositoryTypeInMemory, cfg.Infrastructure.Repository.Type)
	assert.NotEmpty(t, cfg.Batch.JobName)
	assert.Equal(t, "batch_metadata.db", cfg.Infrastructure.Repository.Database.Database)
	assert.Empty(t, cfg.Infrastructure.Notification.AMQP.URL)
}

func TestApplication_LaunchesAndShutsDownWithExitCode(t *testing.T) {
	cfg, err := config.LoadConfig("", embeddedConfig)
	require.NoError(t, err)
	req := LaunchRequest{JobName: "zombieProcessCleanupJob", Params: model.NewJobParameters()}
	result := &LaunchResult{}
	result.Set(-1)
	signaler := batchlistener.NewJobCompletionSignaler()

	opts := append(GetApplicationOptions(context.Background(), cfg, req, result),
		fx.Supply(signaler),
		fx.Provide(fx.Annotate(
			func(s *batchlistener.JobCompletionSignaler) port.JobExecutionListener { return s },
			fx.ResultTags(`group:"`+runner.JobListenerGroup+`"`),
		)),
	)
	app := fxtest.New(t, opts...)
	app.RequireStart()
	select {
	case <-signaler.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("job did not finish")
	}
	assert.Equal(t, model.BatchStatusCompleted, signaler.Execution().Status)

	select {
	case sig := <-app.Wait():
		assert.Equal(t, usecase.ExitCodeCompleted, sig.ExitCode)
	case <-time.After(10 * time.Second):
		t.Fatal("application did not shut down after the job finished")
	}
	app.RequireStop()
	assert.Equal(t, usecase.ExitCodeCompleted, result.Code())
}

func TestApplication_UnknownJobExitsOne(t *testing.T) {
	cfg, err := config.LoadConfig("", embeddedConfig)
	require.NoError(t, err)
	req := LaunchRequest{JobName: "noSuchJob", Params: model.NewJobParameters()}
	result := &LaunchResult{}

	app := fxtest.New(t, GetApplicationOptions(context.Background(), cfg, req, result)...)
	app.RequireStart()
	<-app.Wait()
	app.RequireStop()
	assert.Equal(t, usecase.ExitCodeFailed, result.Code())
}
