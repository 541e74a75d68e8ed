package metrics

import (
	"go.uber.org/fx"
)

// Module provides the no-op recorder and tracer. infrastructure/metrics decorates
// them with real backends according to configuration.
var Module = fx.Options(
	fx.Provide(NewNoOpMetricRecorder),
	fx.Provide(NewNoOpTracer),
)
