package expression

import "go.uber.org/fx"

// Module provides the default Resolver.
var Module = fx.Provide(fx.Annotate(NewDefaultResolver, fx.As(new(Resolver))))
