package scope

import (
	"context"
	"fmt"
	"reflect"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
)

// Provider supplies a component for an execution. Steps call it at step start.
type Provider[T any] func(ctx context.Context, je *model.JobExecution, se *model.StepExecution) (T, error)

// StepScoped resolves the step-scoped definition name for every StepExecution.
func StepScoped[T any](r *Registry, name string) Provider[T] {
	return typed[T](r, name, Step)
}

// JobScoped resolves the job-scoped definition name, once per JobExecution.
func JobScoped[T any](r *Registry, name string) Provider[T] {
	return typed[T](r, name, Job)
}

// Instance always returns v. It serves components without execution-bound state.
func Instance[T any](v T) Provider[T] {
	return func(context.Context, *model.JobExecution, *model.StepExecution) (T, error) {
		return v, nil
	}
}

func typed[T any](r *Registry, name string, kind Kind) Provider[T] {
	return func(ctx context.Context, je *model.JobExecution, se *model.StepExecution) (T, error) {
		var zero T
		inst, err := r.Resolve(ctx, name, kind, je, se)
		if err != nil {
			return zero, err
		}
		v, ok := inst.(T)
		if !ok {
			return zero, fmt.Errorf("[%s] %s-scoped component '%s' is %T, not %s", moduleName, kind, name, inst, reflect.TypeOf((*T)(nil)).Elem())
		}
		return v, nil
	}
}
