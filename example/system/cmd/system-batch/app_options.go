package main

import (
	"context"

	"go.uber.org/fx"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	"github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/ftp"
	"github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/gcs"
	"github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/local"
	usecase "github.com/kangwooc/spring-batch/pkg/batch/core/application/usecase"
	config "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
	coremetrics "github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/expression"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/factory"
	inframetrics "github.com/kangwooc/spring-batch/pkg/batch/infrastructure/metrics"
	"github.com/kangwooc/spring-batch/pkg/batch/infrastructure/repository/inmemory"
	sqlrepo "github.com/kangwooc/spring-batch/pkg/batch/infrastructure/repository/sql"
	batchlistener "github.com/kangwooc/spring-batch/pkg/batch/listener"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"

	appjob "github.com/kangwooc/spring-batch/example/system/internal/job"
)

// GetApplicationOptions builds the fx options of one launch. cfg must already be
// loaded since it selects the repository implementation.
func GetApplicationOptions(appCtx context.Context, cfg *config.Config, req LaunchRequest, result *LaunchResult) []fx.Option {
	var options []fx.Option
	options = append(options, fx.Supply(
		cfg,
		req,
		result,
		fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`)),
	))
	options = append(options, BatchOptions(cfg)...)
	options = append(options, fx.Invoke(fx.Annotate(startJobExecution, fx.ParamTags("", "", "", "", "", `name:"appCtx"`))))
	return options
}

// BatchOptions holds every module of the batch engine except the configuration itself.
func BatchOptions(cfg *config.Config) []fx.Option {
	options := []fx.Option{
		logger.Module,
		coremetrics.Module,
		inframetrics.Module,
		expression.Module,
		scope.Module,
		storage.Module,
		local.Module,
		gcs.Module,
		ftp.Module,
		factory.Module,
		runner.Module,
		usecase.Module,
		batchlistener.Module,
		appjob.Module,
	}
	switch cfg.Infrastructure.Repository.Type {
	case config.RepositoryTypeSQL:
		logger.Infof("Job repository: %s database '%s'.", cfg.Infrastructure.Repository.Database.Type, cfg.Infrastructure.Repository.Database.Database)
		options = append(options, sqlrepo.Module, appjob.SQLModule)
	default:
		logger.Infof("Job repository: in memory.")
		options = append(options, inmemory.Module)
	}
	return options
}

// startJobExecution launches the requested job once the application has started.
func startJobExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	jobLauncher *usecase.SimpleJobLauncher,
	req LaunchRequest,
	result *LaunchResult,
	appCtx context.Context,
) {
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: onStartJobExecution(jobLauncher, req, result, shutdowner, appCtx, done),
		OnStop:  onStopApplication(jobLauncher, done),
	})
}

func onStartJobExecution(
	jobLauncher *usecase.SimpleJobLauncher,
	req LaunchRequest,
	result *LaunchResult,
	shutdowner fx.Shutdowner,
	appCtx context.Context,
	done chan<- struct{},
) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		go func() {
			defer close(done)
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("Panic recovered in job execution: %v", r)
					result.Set(usecase.ExitCodeFailed)
				}
				logger.Infof("Requesting application shutdown after job completion.")
				if err := shutdowner.Shutdown(fx.ExitCode(result.Code())); err != nil {
					logger.Errorf("Failed to shutdown application: %v", err)
				}
			}()
			result.Set(req.Launch(appCtx, jobLauncher))
		}()
		return nil
	}
}

// onStopApplication asks running executions to stop and waits for the launch to
// return, at most until the stop timeout of the application.
func onStopApplication(jobLauncher *usecase.SimpleJobLauncher, done <-chan struct{}) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if stopped := jobLauncher.StopAll(); len(stopped) > 0 {
			logger.Warnf("Stop requested for running executions %v.", stopped)
		}
		select {
		case <-done:
		case <-ctx.Done():
			logger.Warnf("Job did not stop before the shutdown timeout: %v", ctx.Err())
		}
		logger.Infof("Application is shutting down.")
		return nil
	}
}
