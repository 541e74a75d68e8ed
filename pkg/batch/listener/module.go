// Package listener aggregates the listener modules attached to every job and step.
package listener

import (
	"go.uber.org/fx"

	"github.com/kangwooc/spring-batch/pkg/batch/listener/logging"
	"github.com/kangwooc/spring-batch/pkg/batch/listener/metrics"
	"github.com/kangwooc/spring-batch/pkg/batch/listener/notification"
	"github.com/kangwooc/spring-batch/pkg/batch/listener/tracing"
)

var Module = fx.Options(
	logging.Module,
	metrics.Module,
	tracing.Module,
	notification.Module,
)
