// Command system-batch launches one of the system jobs and exits with its exit code:
// 0 when the job completed, 1 when it failed and 2 when an execution of the same
// instance is already running.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"go.uber.org/fx"

	_ "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm/mysql"
	_ "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm/sqlite"
	usecase "github.com/kangwooc/spring-batch/pkg/batch/core/application/usecase"
	config "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

//go:embed resources/application.yaml
var embeddedConfig []byte

// main loads the configuration, parses the launch request and runs the fx application.
// The first SIGINT or SIGTERM asks the running job to stop at its next chunk
// boundary; a second one cancels the launch context.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	config.Apply(cfg)

	req, err := ParseLaunchRequest(os.Args[1:], cfg.Batch.JobName, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(usecase.ExitCodeCompleted)
		}
		logger.Errorf("Invalid command line: %v", err)
		os.Exit(usecase.ExitCodeFailed)
	}

	// fx stops the application on the first signal too; its OnStop hook requests
	// the stop and waits for the job.
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the job...", sig)
		sig = <-sigChan
		logger.Warnf("Received signal '%v' again. Cancelling the launch.", sig)
		cancel()
	}()

	result := &LaunchResult{}
	fxApp := fx.New(GetApplicationOptions(ctx, cfg, req, result)...)

	fxApp.Run()
	if fxApp.Err() != nil {
		logger.Fatalf("Application run failed: %v", fxApp.Err())
	}
	os.Exit(result.Code())
}
