package model

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// NewID generates a new execution identifier.
func NewID() string {
	return uuid.New().String()
}

// FailureList holds the messages of the errors that ended an execution.
type FailureList []string

// JobInstance is the logical run identified by a job name and its identifying parameters.
type JobInstance struct {
	ID             string
	JobName        string
	Parameters     JobParameters
	ParametersHash string
	CreateTime     time.Time
	Version        int
}

func NewJobInstance(jobName string, params JobParameters) *JobInstance {
	return &JobInstance{
		ID:             NewID(),
		JobName:        jobName,
		Parameters:     params,
		ParametersHash: params.Hash(),
		CreateTime:     time.Now(),
	}
}

// stopSignal is shared by every copy of a JobExecution so a stop requested on
// one copy is observed by the goroutine running the job.
type stopSignal struct {
	requested atomic.Bool
}

// JobExecution is one attempt to run a JobInstance.
type JobExecution struct {
	ID               string
	JobInstanceID    string
	JobName          string
	Parameters       JobParameters
	Status           BatchStatus
	ExitStatus       ExitStatus
	Failures         FailureList
	StartTime        time.Time
	EndTime          *time.Time
	CreateTime       time.Time
	LastUpdated      time.Time
	Version          int
	RestartCount     int
	CurrentStepName  string
	ExecutionContext ExecutionContext
	StepExecutions   []*StepExecution

	stop *stopSignal
}

func NewJobExecution(instance *JobInstance, params JobParameters) *JobExecution {
	now := time.Now()
	return &JobExecution{
		ID:               NewID(),
		JobInstanceID:    instance.ID,
		JobName:          instance.JobName,
		Parameters:       params,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		Failures:         FailureList{},
		CreateTime:       now,
		LastUpdated:      now,
		ExecutionContext: NewExecutionContext(),
		stop:             &stopSignal{},
	}
}

// RequestStop asks the running job to stop at the next chunk or tasklet boundary.
func (je *JobExecution) RequestStop() {
	if je.stop == nil {
		je.stop = &stopSignal{}
	}
	je.stop.requested.Store(true)
}

// IsStopRequested reports whether RequestStop was called on this execution.
func (je *JobExecution) IsStopRequested() bool {
	return je.stop != nil && je.stop.requested.Load()
}

// TransitionTo changes Status if the transition is allowed.
func (je *JobExecution) TransitionTo(next BatchStatus) error {
	if !isValidTransition(je.Status, next) {
		return fmt.Errorf("JobExecution (ID: %s): invalid state transition: %s -> %s", je.ID, je.Status, next)
	}
	je.Status = next
	je.LastUpdated = time.Now()
	return nil
}

func (je *JobExecution) force(next BatchStatus) {
	if err := je.TransitionTo(next); err != nil {
		logger.Warnf("%v; forcing %s", err, next)
		je.Status = next
		je.LastUpdated = time.Now()
	}
}

func (je *JobExecution) MarkAsStarted() {
	je.force(BatchStatusStarted)
	je.StartTime = je.LastUpdated
	je.ExitStatus = ExitStatusExecuting
}

func (je *JobExecution) MarkAsCompleted() {
	je.finish(BatchStatusCompleted)
}

func (je *JobExecution) MarkAsStopped() {
	je.finish(BatchStatusStopped)
}

func (je *JobExecution) MarkAsAbandoned() {
	je.finish(BatchStatusAbandoned)
}

func (je *JobExecution) MarkAsFailed(err error) {
	je.finish(BatchStatusFailed)
	je.AddFailureException(err)
}

func (je *JobExecution) finish(status BatchStatus) {
	je.force(status)
	je.ExitStatus = status.ToExitStatus()
	now := je.LastUpdated
	je.EndTime = &now
}

// AddFailureException records err once.
func (je *JobExecution) AddFailureException(err error) {
	je.Failures = appendFailure(je.Failures, err)
}

func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.StepExecutions = append(je.StepExecutions, se)
}

// CompletedStepCount counts the step executions of this attempt that completed.
func (je *JobExecution) CompletedStepCount() int {
	n := 0
	for _, se := range je.StepExecutions {
		if se.Status == BatchStatusCompleted {
			n++
		}
	}
	return n
}

// StepExecution is one attempt to run a named step inside a JobExecution.
type StepExecution struct {
	ID               string
	StepName         string
	JobExecutionID   string
	JobExecution     *JobExecution
	Status           BatchStatus
	ExitStatus       ExitStatus
	Failures         FailureList
	StartTime        time.Time
	EndTime          *time.Time
	LastUpdated      time.Time
	Version          int
	ReadCount        int
	WriteCount       int
	FilterCount      int
	CommitCount      int
	RollbackCount    int
	ReadSkipCount    int
	ProcessSkipCount int
	WriteSkipCount   int
	ExecutionContext ExecutionContext
}

func NewStepExecution(stepName string, je *JobExecution) *StepExecution {
	now := time.Now()
	return &StepExecution{
		ID:               NewID(),
		StepName:         stepName,
		JobExecutionID:   je.ID,
		JobExecution:     je,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		Failures:         FailureList{},
		StartTime:        now,
		LastUpdated:      now,
		ExecutionContext: NewExecutionContext(),
	}
}

// CopyForRestart starts a new attempt of the step in je, carrying over the
// execution context of the previous attempt so readers resume from its checkpoint.
func (se *StepExecution) CopyForRestart(je *JobExecution) *StepExecution {
	next := NewStepExecution(se.StepName, je)
	next.ExecutionContext = se.ExecutionContext.Copy()
	return next
}

// SkipCount is the total of read, process and write skips.
func (se *StepExecution) SkipCount() int {
	return se.ReadSkipCount + se.ProcessSkipCount + se.WriteSkipCount
}

func (se *StepExecution) TransitionTo(next BatchStatus) error {
	if !isValidTransition(se.Status, next) {
		return fmt.Errorf("StepExecution (ID: %s): invalid state transition: %s -> %s", se.ID, se.Status, next)
	}
	se.Status = next
	se.LastUpdated = time.Now()
	return nil
}

func (se *StepExecution) force(next BatchStatus) {
	if err := se.TransitionTo(next); err != nil {
		logger.Warnf("%v; forcing %s", err, next)
		se.Status = next
		se.LastUpdated = time.Now()
	}
}

func (se *StepExecution) MarkAsStarted() {
	se.force(BatchStatusStarted)
	se.StartTime = se.LastUpdated
	se.ExitStatus = ExitStatusExecuting
}

func (se *StepExecution) MarkAsCompleted() {
	se.finish(BatchStatusCompleted)
}

func (se *StepExecution) MarkAsStopped() {
	se.finish(BatchStatusStopped)
}

func (se *StepExecution) MarkAsFailed(err error) {
	se.finish(BatchStatusFailed)
	se.AddFailureException(err)
}

func (se *StepExecution) finish(status BatchStatus) {
	se.force(status)
	se.ExitStatus = status.ToExitStatus()
	now := se.LastUpdated
	se.EndTime = &now
}

func (se *StepExecution) AddFailureException(err error) {
	se.Failures = appendFailure(se.Failures, err)
}

// DebugString summarizes the counters without the execution context.
func (se *StepExecution) DebugString() string {
	return fmt.Sprintf("StepExecution{ID:%s Step:%s Status:%s Exit:%s read=%d write=%d filter=%d commit=%d rollback=%d skip(r/p/w)=%d/%d/%d}",
		se.ID, se.StepName, se.Status, se.ExitStatus,
		se.ReadCount, se.WriteCount, se.FilterCount, se.CommitCount, se.RollbackCount,
		se.ReadSkipCount, se.ProcessSkipCount, se.WriteSkipCount)
}

func appendFailure(list FailureList, err error) FailureList {
	if err == nil {
		return list
	}
	msg := exception.ExtractErrorMessage(err)
	for _, existing := range list {
		if existing == msg {
			return list
		}
	}
	return append(list, msg)
}

// CheckpointData is the execution context committed with the last successful chunk of a step.
type CheckpointData struct {
	StepExecutionID  string
	ExecutionContext ExecutionContext
	LastUpdated      time.Time
}
