package exception

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure.
type Kind string

const (
	KindParameterBinding Kind = "ParameterBindingError"
	KindRead             Kind = "ReadError"
	KindProcess          Kind = "ProcessError"
	KindWrite            Kind = "WriteError"
	KindStepExecution    Kind = "StepExecutionError"
	KindOrchestration    Kind = "OrchestrationError"
)

type kindSentinel Kind

func (k kindSentinel) Error() string { return string(k) }

// Sentinels for errors.Is. A *BatchError with the matching Kind, or a
// *ParameterBindingError, satisfies errors.Is against them.
var (
	ErrParameterBinding error = kindSentinel(KindParameterBinding)
	ErrRead             error = kindSentinel(KindRead)
	ErrProcess          error = kindSentinel(KindProcess)
	ErrWrite            error = kindSentinel(KindWrite)
	ErrStepExecution    error = kindSentinel(KindStepExecution)
	ErrOrchestration    error = kindSentinel(KindOrchestration)
)

func newKindError(kind Kind, module, message string, err error, skippable, retryable bool) *BatchError {
	be := NewBatchError(module, message, err, skippable, retryable)
	be.Kind = kind
	return be
}

// NewReadError wraps a reader failure. Read errors are skip candidates.
func NewReadError(module string, err error) *BatchError {
	return newKindError(KindRead, module, "failed to read item", err, true, false)
}

// NewProcessError wraps a processor failure. Process errors are skip candidates.
func NewProcessError(module string, err error) *BatchError {
	return newKindError(KindProcess, module, "failed to process item", err, true, false)
}

// NewWriteError wraps a writer failure. Write errors are never skippable.
func NewWriteError(module string, err error) *BatchError {
	return newKindError(KindWrite, module, "failed to write chunk", err, false, false)
}

// NewStepExecutionError wraps a tasklet failure.
func NewStepExecutionError(module string, err error) *BatchError {
	return newKindError(KindStepExecution, module, "step execution failed", err, false, true)
}

// NewOrchestrationError wraps the step failure that halted a job.
func NewOrchestrationError(jobName, stepName string, err error) *BatchError {
	return newKindError(KindOrchestration, jobName, fmt.Sprintf("step '%s' did not complete", stepName), err, false, false)
}

// ParameterBindingError is raised when a scoped component placeholder is
// missing or cannot be converted to its declared type.
type ParameterBindingError struct {
	Component   string
	Placeholder string
	Reason      string
	Err         error
}

func (e *ParameterBindingError) Error() string {
	msg := fmt.Sprintf("[%s] cannot bind placeholder '%s': %s", e.Component, e.Placeholder, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParameterBindingError) Unwrap() error { return e.Err }

func (e *ParameterBindingError) Is(target error) bool {
	return target == ErrParameterBinding
}

// IsParameterBindingError reports whether err carries a *ParameterBindingError.
func IsParameterBindingError(err error) bool {
	return errors.Is(err, ErrParameterBinding)
}
