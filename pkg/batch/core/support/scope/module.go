package scope

import (
	"go.uber.org/fx"

	"github.com/kangwooc/spring-batch/pkg/batch/core/support/expression"
)

// RegistryParams lets applications contribute definitions through the "scope.definitions" group.
type RegistryParams struct {
	fx.In
	Resolver    expression.Resolver `optional:"true"`
	Definitions []Definition        `group:"scope.definitions"`
}

// NewRegistryFromParams builds the registry and registers every contributed definition.
func NewRegistryFromParams(p RegistryParams) (*Registry, error) {
	r := NewRegistry(p.Resolver)
	for _, def := range p.Definitions {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// AsDefinition annotates a constructor returning a Definition for the definitions group.
func AsDefinition(f any) any {
	return fx.Annotate(f, fx.ResultTags(`group:"scope.definitions"`))
}

// Module provides the *Registry.
var Module = fx.Provide(NewRegistryFromParams)
