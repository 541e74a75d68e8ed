package logging

import (
	"go.uber.org/fx"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/factory"
)

// Module attaches the logging listeners to every job and step built by the factories.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewJobListener,
		fx.As(new(port.JobExecutionListener)),
		fx.ResultTags(`group:"`+runner.JobListenerGroup+`"`),
	)),
	fx.Provide(fx.Annotate(
		NewStepListener,
		fx.As(new(port.StepExecutionListener)),
		fx.ResultTags(`group:"`+factory.StepListenerGroup+`"`),
	)),
)
