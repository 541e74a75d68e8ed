package scope

import (
	"context"
	"fmt"
	"sync"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/expression"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

const moduleName = "scope"

// BuildFunc builds a component from its bound values.
type BuildFunc func(ctx context.Context, values Values) (any, error)

// Definition describes how a scoped component is built.
type Definition struct {
	Name         string
	Kind         Kind
	Placeholders []Placeholder
	Build        BuildFunc
}

type key struct {
	name string
	kind Kind
}

// Registry holds scoped definitions keyed by (name, kind) and the job-scoped
// instances of the executions currently running.
type Registry struct {
	mu       sync.Mutex
	defs     map[key]Definition
	jobCache map[string]map[string]any
	resolver expression.Resolver
}

// NewRegistry returns an empty registry. resolver may be nil.
func NewRegistry(resolver expression.Resolver) *Registry {
	if resolver == nil {
		resolver = expression.NewDefaultResolver()
	}
	return &Registry{
		defs:     make(map[key]Definition),
		jobCache: make(map[string]map[string]any),
		resolver: resolver,
	}
}

// Register adds def. Registering the same (name, kind) twice is an error, and so is a
// job-scoped placeholder reading the step execution context.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" || def.Build == nil {
		return exception.NewBatchErrorf(moduleName, "definition needs a name and a Build function")
	}
	for _, p := range def.Placeholders {
		if def.Kind == Job && p.Source == StepExecutionContext {
			return exception.NewBatchErrorf(moduleName, "job-scoped '%s' cannot read %s", def.Name, p)
		}
		if p.Type == Enum && len(p.Enum) == 0 {
			return exception.NewBatchErrorf(moduleName, "enum placeholder %s of '%s' lists no values", p, def.Name)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{def.Name, def.Kind}
	if _, exists := r.defs[k]; exists {
		return exception.NewBatchErrorf(moduleName, "%s-scoped component '%s' is already registered", def.Kind, def.Name)
	}
	r.defs[k] = def
	logger.Debugf("Registered %s-scoped component '%s' with %d placeholder(s).", def.Kind, def.Name, len(def.Placeholders))
	return nil
}

// MustRegister is Register for static wiring; it panics on error.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Lookup returns the definition registered under (name, kind).
func (r *Registry) Lookup(name string, kind Kind) (Definition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.defs[key{name, kind}]
	return def, ok
}

// Resolve binds and builds the named component for the given executions.
//
// Step-scoped components are built anew on every call. Job-scoped components are
// built on the first call for je and returned from cache until Release(je.ID).
// All placeholders are bound before Build runs; the first failure is returned as
// a *exception.ParameterBindingError.
func (r *Registry) Resolve(ctx context.Context, name string, kind Kind, je *model.JobExecution, se *model.StepExecution) (any, error) {
	def, ok := r.Lookup(name, kind)
	if !ok {
		return nil, exception.NewBatchErrorf(moduleName, "no %s-scoped component named '%s'", kind, name)
	}
	if je == nil {
		return nil, exception.NewBatchErrorf(moduleName, "cannot resolve '%s' without a job execution", name)
	}

	if kind == Job {
		r.mu.Lock()
		if inst, ok := r.jobCache[je.ID][name]; ok {
			r.mu.Unlock()
			return inst, nil
		}
		r.mu.Unlock()
		se = nil
	}

	values, err := r.bind(def, je, se)
	if err != nil {
		return nil, err
	}
	inst, err := def.Build(ctx, values)
	if err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "failed to build %s-scoped component '%s'", kind, name, err)
	}

	if kind == Job {
		r.mu.Lock()
		defer r.mu.Unlock()
		cache, ok := r.jobCache[je.ID]
		if !ok {
			cache = make(map[string]any)
			r.jobCache[je.ID] = cache
		}
		// A concurrent first request may have won; keep its instance.
		if existing, ok := cache[name]; ok {
			return existing, nil
		}
		cache[name] = inst
	}
	return inst, nil
}

// Release drops the job-scoped instances of a finished execution.
func (r *Registry) Release(jobExecutionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.jobCache[jobExecutionID]); n > 0 {
		logger.Debugf("Released %d job-scoped component(s) of JobExecution %s.", n, jobExecutionID)
	}
	delete(r.jobCache, jobExecutionID)
}

func (r *Registry) bind(def Definition, je *model.JobExecution, se *model.StepExecution) (Values, error) {
	values := make(map[string]any, len(def.Placeholders))
	for _, p := range def.Placeholders {
		raw, found := lookup(p, je, se)
		if !found || raw == nil {
			if p.Required {
				return Values{}, &exception.ParameterBindingError{
					Component:   def.Name,
					Placeholder: p.Name,
					Reason:      fmt.Sprintf("required %s value is missing from %s", p.Type, p.Source),
				}
			}
			if p.Default != nil {
				values[p.Name] = p.Default
			}
			continue
		}
		v, err := coerce(p, raw)
		if err != nil {
			return Values{}, &exception.ParameterBindingError{
				Component:   def.Name,
				Placeholder: p.Name,
				Reason:      fmt.Sprintf("cannot convert %s value to %s", p.Source, p.Type),
				Err:         err,
			}
		}
		values[p.Name] = v
	}
	return Values{component: def.Name, values: values, je: je, se: se, resolver: r.resolver}, nil
}
