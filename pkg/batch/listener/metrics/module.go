package metrics

import (
	"go.uber.org/fx"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
	"github.com/kangwooc/spring-batch/pkg/batch/engine/step/factory"
)

var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewChunkTimingListener,
		fx.As(new(port.StepExecutionListener)),
		fx.ResultTags(`group:"`+factory.StepListenerGroup+`"`),
	)),
	fx.Provide(fx.Annotate(
		NewJobTimingListener,
		fx.As(new(port.JobExecutionListener)),
		fx.ResultTags(`group:"`+runner.JobListenerGroup+`"`),
	)),
)
