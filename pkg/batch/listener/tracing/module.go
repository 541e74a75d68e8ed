package tracing

import (
	"go.uber.org/fx"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/factory"
)

var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewStepEventListener,
		fx.As(new(port.StepExecutionListener)),
		fx.ResultTags(`group:"`+factory.StepListenerGroup+`"`),
	)),
)
