package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	usecase "github.com/kangwooc/spring-batch/pkg/batch/core/application/usecase"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

const usage = `usage: system-batch [--json] [--next] [jobName] [name=value[,type[,identifying]] ...]

With --json each parameter is name={"value":"...","type":"...","identifying":"..."}.
With --next the job's incrementer derives the parameters of a new instance.
Without jobName the configured batch.job_name is launched.`

// LaunchRequest is one parsed command line.
type LaunchRequest struct {
	JobName string
	Params  model.JobParameters
	Next    bool
}

// ParseLaunchRequest parses the command line arguments following the program name.
// defaultJob is used when the first positional argument is a parameter.
func ParseLaunchRequest(args []string, defaultJob string, output io.Writer) (LaunchRequest, error) {
	fs := flag.NewFlagSet("system-batch", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() { fmt.Fprintln(output, usage) }
	jsonParams := fs.Bool("json", false, "parse job parameters with the JSON converter")
	next := fs.Bool("next", false, "launch the next instance of the job")
	if err := fs.Parse(args); err != nil {
		return LaunchRequest{}, err
	}

	positional := fs.Args()
	req := LaunchRequest{JobName: defaultJob, Next: *next}
	if len(positional) > 0 && !isParameter(positional[0]) {
		req.JobName, positional = positional[0], positional[1:]
	}
	if req.JobName == "" {
		fs.Usage()
		return LaunchRequest{}, errors.New("no job name given and batch.job_name is empty")
	}

	parse := model.ParseJobParameters
	if *jsonParams {
		parse = model.ParseJSONJobParameters
	}
	params, err := parse(positional)
	if err != nil {
		return LaunchRequest{}, err
	}
	req.Params = params
	return req, nil
}

func isParameter(arg string) bool { return strings.Contains(arg, "=") }

// Launch runs the job and returns the process exit code.
func (r LaunchRequest) Launch(ctx context.Context, launcher *usecase.SimpleJobLauncher) int {
	logger.Infof("Launching job '%s' with %d parameters.", r.JobName, r.Params.Len())
	if r.Next {
		return launcher.RunNextInstance(ctx, r.JobName, r.Params)
	}
	return launcher.Run(ctx, r.JobName, r.Params)
}

// LaunchResult carries the exit code out of the fx application.
type LaunchResult struct {
	code atomic.Int32
}

func (r *LaunchResult) Set(code int) { r.code.Store(int32(code)) }

func (r *LaunchResult) Code() int { return int(r.code.Load()) }
