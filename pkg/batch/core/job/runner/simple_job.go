// Package runner runs the steps of a job in declaration order.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	metrics "github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// ScopeReleaser discards the job-scoped components built for an execution.
// *scope.Registry implements it.
type ScopeReleaser interface {
	Release(jobExecutionID string)
}

// SimpleJob executes its steps one after another. The first step that does
// not complete ends the job with that step's status.
type SimpleJob struct {
	name           string
	jobRepository  repository.JobRepository
	steps          []port.Step
	listeners      []port.JobExecutionListener
	incrementer    port.JobParametersIncrementer
	scopes         ScopeReleaser
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

var _ port.Job = (*SimpleJob)(nil)

// NewSimpleJob creates a job running steps in the given order.
func NewSimpleJob(name string, jobRepository repository.JobRepository, steps ...port.Step) *SimpleJob {
	return &SimpleJob{
		name:           name,
		jobRepository:  jobRepository,
		steps:          steps,
		metricRecorder: metrics.NewNoOpMetricRecorder(),
		tracer:         metrics.NewNoOpTracer(),
	}
}

func (j *SimpleJob) WithListeners(listeners ...port.JobExecutionListener) *SimpleJob {
	j.listeners = append(j.listeners, listeners...)
	return j
}

// WithIncrementer sets how the launcher derives the parameters of the next instance.
func (j *SimpleJob) WithIncrementer(incrementer port.JobParametersIncrementer) *SimpleJob {
	j.incrementer = incrementer
	return j
}

// WithScopeReleaser makes the job release job-scoped components once it ends.
func (j *SimpleJob) WithScopeReleaser(r ScopeReleaser) *SimpleJob {
	j.scopes = r
	return j
}

func (j *SimpleJob) WithMetricRecorder(r metrics.MetricRecorder) *SimpleJob {
	if r != nil {
		j.metricRecorder = r
	}
	return j
}

func (j *SimpleJob) WithTracer(t metrics.Tracer) *SimpleJob {
	if t != nil {
		j.tracer = t
	}
	return j
}

func (j *SimpleJob) JobName() string { return j.name }

// Steps returns the steps in execution order.
func (j *SimpleJob) Steps() []port.Step { return j.steps }

// Incrementer returns the configured incrementer, or nil.
func (j *SimpleJob) Incrementer() port.JobParametersIncrementer { return j.incrementer }

// Run implements port.Job.
func (j *SimpleJob) Run(ctx context.Context, jobExecution *model.JobExecution) (err error) {
	logger.Infof("Starting Job '%s' (Execution ID: %s, Parameters: %s).", j.name, jobExecution.ID, jobExecution.Parameters.String())

	ctx, finishSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()

	jobExecution.MarkAsStarted()
	if uerr := j.jobRepository.UpdateJobExecution(ctx, jobExecution); uerr != nil {
		cause := exception.NewBatchError(j.name, "failed to persist started job execution", uerr, false, false)
		jobExecution.MarkAsFailed(cause)
		return cause
	}
	j.metricRecorder.RecordJobStart(ctx, jobExecution)
	for _, l := range j.listeners {
		l.BeforeJob(ctx, jobExecution)
	}

	defer func() {
		j.finish(ctx, jobExecution, err)
	}()

	for _, s := range j.steps {
		if jobExecution.IsStopRequested() || ctx.Err() != nil {
			logger.Infof("Job '%s': stop requested before step '%s'.", j.name, s.StepName())
			jobExecution.MarkAsStopped()
			return nil
		}

		stepExecution, skip, perr := j.prepareStep(ctx, jobExecution, s)
		if perr != nil {
			cause := exception.NewOrchestrationError(j.name, s.StepName(), perr)
			jobExecution.MarkAsFailed(cause)
			return cause
		}
		if skip {
			continue
		}

		serr := s.Execute(ctx, jobExecution, stepExecution)

		if uerr := j.jobRepository.UpdateJobExecution(context.WithoutCancel(ctx), jobExecution); uerr != nil {
			logger.Errorf("Job '%s': failed to persist job execution after step '%s': %v", j.name, s.StepName(), uerr)
		}

		switch stepExecution.Status {
		case model.BatchStatusCompleted:
			logger.Infof("Job '%s': Step '%s' completed. ExitStatus: %s", j.name, s.StepName(), stepExecution.ExitStatus)
		case model.BatchStatusStopped:
			logger.Infof("Job '%s': Step '%s' stopped; stopping job.", j.name, s.StepName())
			jobExecution.MarkAsStopped()
			return nil
		default:
			if serr == nil {
				serr = errors.New(strings.Join(stepExecution.Failures, "; "))
			}
			cause := exception.NewOrchestrationError(j.name, s.StepName(), serr)
			logger.Errorf("Job '%s': %v", j.name, cause)
			j.tracer.RecordError(ctx, "job_runner", cause)
			jobExecution.MarkAsFailed(cause)
			return cause
		}
	}

	jobExecution.MarkAsCompleted()
	return nil
}

// prepareStep returns the StepExecution to run for s, or skip=true when the
// step already completed in an earlier execution of the same instance.
func (j *SimpleJob) prepareStep(ctx context.Context, je *model.JobExecution, s port.Step) (*model.StepExecution, bool, error) {
	name := s.StepName()
	var se *model.StepExecution

	last, err := j.jobRepository.FindLastStepExecution(ctx, je.JobInstanceID, name)
	switch {
	case errors.Is(err, repository.ErrStepExecutionNotFound):
		se = model.NewStepExecution(name, je)
	case err != nil:
		return nil, false, fmt.Errorf("failed to look up the last execution of step '%s': %w", name, err)
	case last.Status == model.BatchStatusCompleted && !s.AllowStartIfComplete():
		logger.Infof("Job '%s': Step '%s' already completed (StepExecution ID: %s). Skipping.", j.name, name, last.ID)
		return nil, true, nil
	case last.Status == model.BatchStatusCompleted, last.Status == model.BatchStatusAbandoned:
		se = model.NewStepExecution(name, je)
	default:
		se = last.CopyForRestart(je)
		if cp, cerr := j.jobRepository.FindCheckpointData(ctx, last.ID); cerr == nil {
			se.ExecutionContext = cp.ExecutionContext.Copy()
		}
		logger.Infof("Job '%s': Restarting step '%s' from the checkpoint of StepExecution %s.", j.name, name, last.ID)
	}

	je.CurrentStepName = name
	je.AddStepExecution(se)
	if err := j.jobRepository.SaveStepExecution(ctx, se); err != nil {
		return nil, false, fmt.Errorf("failed to save step execution: %w", err)
	}
	return se, false, nil
}

func (j *SimpleJob) finish(ctx context.Context, je *model.JobExecution, cause error) {
	if !je.Status.IsFinished() {
		je.MarkAsFailed(cause)
	}
	for _, l := range j.listeners {
		l.AfterJob(ctx, je)
	}
	if err := j.jobRepository.UpdateJobExecution(context.WithoutCancel(ctx), je); err != nil {
		logger.Errorf("Job '%s': failed to persist final job execution: %v", j.name, err)
	}
	if j.scopes != nil {
		j.scopes.Release(je.ID)
	}
	j.metricRecorder.RecordJobEnd(ctx, je)

	logger.Infof("Job '%s' (Execution ID: %s) finished. Status: %s, ExitStatus: %s", j.name, je.ID, je.Status, je.ExitStatus)
	for _, se := range je.StepExecutions {
		logger.Debugf("  %s", se.DebugString())
	}
}
