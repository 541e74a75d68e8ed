package usecase

import (
	"go.uber.org/fx"
)

// Module provides the job registry, launcher, operator and explorer.
var Module = fx.Options(
	fx.Provide(NewJobRegistry),
	fx.Provide(NewSimpleJobLauncher),
	fx.Provide(func(l *SimpleJobLauncher) JobLauncher { return l }),
	fx.Provide(fx.Annotate(
		NewSimpleJobExplorer,
		fx.As(new(JobExplorer)),
	)),
	fx.Provide(fx.Annotate(
		NewDefaultJobOperator,
		fx.As(new(JobOperator)),
	)),
)
